package main

import (
	"flag"

	"github.com/gitparent/gitp"
)

type pullCommand struct {
	force bool
	from  string
}

func (cmd *pullCommand) Name() string      { return "pull" }
func (cmd *pullCommand) Args() string      { return "[target]" }
func (cmd *pullCommand) ShortHelp() string { return "Fast-forward the tree and re-sync" }
func (cmd *pullCommand) LongHelp() string {
	return `
Fetches and fast-forwards every repo in the working directory's tree from
its current remotes (or from -from, a local mirror), then re-syncs so new
manifest entries are materialized.
`
}
func (cmd *pullCommand) Hidden() bool { return false }

func (cmd *pullCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.force, "force", false, "proceed even if local changes would be clobbered")
	fs.StringVar(&cmd.from, "from", "", "pull from this local mirror instead of the tracked remote")
}

func (cmd *pullCommand) Run(ctx *gitp.Context, args []string) error {
	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	driver := newDriver(ctx)
	return gitp.Pull(ctx, driver, ctx.WorkingDir, cmd.from, gitp.SyncOptions{Target: target, Force: cmd.force})
}
