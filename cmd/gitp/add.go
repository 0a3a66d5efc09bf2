package main

import (
	"flag"

	"github.com/gitparent/gitp"
)

type addCommand struct{}

func (cmd *addCommand) Name() string      { return "add" }
func (cmd *addCommand) Args() string      { return "[path...]" }
func (cmd *addCommand) ShortHelp() string { return "Stage files, routed to their containing repo" }
func (cmd *addCommand) LongHelp() string {
	return `
Routes each path to the repo that contains it and stages it there. With no
paths, stages everything in every materialized, non-link node.
`
}
func (cmd *addCommand) Hidden() bool { return false }

func (cmd *addCommand) Register(fs *flag.FlagSet) {}

func (cmd *addCommand) Run(ctx *gitp.Context, args []string) error {
	driver := newDriver(ctx)
	return gitp.Add(ctx, driver, ctx.WorkingDir, args)
}
