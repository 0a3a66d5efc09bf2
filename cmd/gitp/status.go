package main

import (
	"flag"

	"github.com/gitparent/gitp"
)

type statusCommand struct {
	short bool
}

func (cmd *statusCommand) Name() string      { return "status" }
func (cmd *statusCommand) Args() string      { return "[-s]" }
func (cmd *statusCommand) ShortHelp() string { return "Report per-node reconciliation state" }
func (cmd *statusCommand) LongHelp() string {
	return `
Reports every node, clean ones included, with its reconciliation state
against its manifest declaration, plus overlay parity, using the symbols:

  ✓ clean   * modified   ! unaligned   - nonexistent   # unlinked   ^ overlayed

A repo with a merge in progress is reported by falling through to the
underlying VCS instead of being parsed as a mismatch.
`
}
func (cmd *statusCommand) Hidden() bool { return false }

func (cmd *statusCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.short, "s", false, "print only the symbol and path")
}

func (cmd *statusCommand) Run(ctx *gitp.Context, args []string) error {
	driver := newDriver(ctx)
	opts := gitp.StatusOptions{Short: cmd.short, Color: colorEnabled(ctx)}
	lines, err := gitp.Status(ctx, driver, ctx.WorkingDir, opts)
	if err != nil {
		return err
	}
	gitp.WriteStatus(ctx.Out, lines, opts)
	return nil
}
