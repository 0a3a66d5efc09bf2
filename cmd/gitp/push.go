package main

import (
	"flag"

	"github.com/gitparent/gitp"
)

type pushCommand struct {
	force bool
}

func (cmd *pushCommand) Name() string      { return "push" }
func (cmd *pushCommand) Args() string      { return "" }
func (cmd *pushCommand) ShortHelp() string { return "Push every node with unpushed commits" }
func (cmd *pushCommand) LongHelp() string {
	return `
Walks the tree in reverse depth-first order (children before parent) and
pushes only the nodes carrying unpushed commits. An unaligned subtree
aborts the push unless -force. When the top manifest declares a lock
server, the whole walk runs under a single acquired lock.
`
}
func (cmd *pushCommand) Hidden() bool { return false }

func (cmd *pushCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.force, "force", false, "push even if the subtree is unaligned")
}

func (cmd *pushCommand) Run(ctx *gitp.Context, args []string) error {
	driver := newDriver(ctx)
	return gitp.Push(ctx, driver, ctx.WorkingDir, gitp.PushOptions{Force: cmd.force})
}
