package main

import (
	"flag"

	"github.com/gitparent/gitp"
)

type syncCommand struct {
	force bool
	local string
}

func (cmd *syncCommand) Name() string      { return "sync" }
func (cmd *syncCommand) Args() string      { return "[target]" }
func (cmd *syncCommand) ShortHelp() string { return "Bring the tree in line with its manifests" }
func (cmd *syncCommand) LongHelp() string {
	return `
Recursively clone, pull, link, and checkout every manifest-declared child
under the working directory so it matches its declaration. With a target
path, only that node (and, with a trailing slash, its descendants) is
synced.
`
}
func (cmd *syncCommand) Hidden() bool { return false }

func (cmd *syncCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.force, "force", false, "proceed even if local changes would be clobbered")
	fs.StringVar(&cmd.local, "local", "", "child path whose declared link is materialized as a copy instead of a symlink")
}

func (cmd *syncCommand) Run(ctx *gitp.Context, args []string) error {
	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	driver := newDriver(ctx)
	return gitp.Sync(ctx, driver, ctx.WorkingDir, gitp.SyncOptions{
		Target: target,
		Force:  cmd.force,
		Local:  cmd.local,
	})
}
