package main

import (
	"flag"
	"fmt"

	"github.com/gitparent/gitp"
)

type remoteCommand struct{}

func (cmd *remoteCommand) Name() string      { return "remote" }
func (cmd *remoteCommand) Args() string      { return "<args...>" }
func (cmd *remoteCommand) ShortHelp() string { return "git remote, manifest-aware for set-url origin" }
func (cmd *remoteCommand) LongHelp() string {
	return `
Passes through to the underlying VCS's remote command, except
"remote set-url origin <url>" additionally updates the parent manifest's
recorded url for this child.
`
}
func (cmd *remoteCommand) Hidden() bool { return false }

func (cmd *remoteCommand) Register(fs *flag.FlagSet) {}

func (cmd *remoteCommand) Run(ctx *gitp.Context, args []string) error {
	driver := newDriver(ctx)
	out, err := gitp.Remote(ctx, driver, ctx.WorkingDir, args)
	fmt.Fprint(ctx.Out, out)
	return err
}
