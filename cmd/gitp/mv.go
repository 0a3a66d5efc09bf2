package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/gitparent/gitp"
)

type mvCommand struct{}

func (cmd *mvCommand) Name() string      { return "mv" }
func (cmd *mvCommand) Args() string      { return "<src> <dst>" }
func (cmd *mvCommand) ShortHelp() string { return "Relocate a manifest-tracked child" }
func (cmd *mvCommand) LongHelp() string {
	return `
Relocates a repo entry, updating both source and destination manifests and
gitignores. Plain file moves are passed through to the underlying VCS.
`
}
func (cmd *mvCommand) Hidden() bool { return false }

func (cmd *mvCommand) Register(fs *flag.FlagSet) {}

func (cmd *mvCommand) Run(ctx *gitp.Context, args []string) error {
	if len(args) < 2 {
		return gitp.NewUsageError("mv requires <src> <dst>")
	}
	srcDir := filepath.Join(ctx.WorkingDir, filepath.Dir(args[0]))
	srcName := filepath.Base(args[0])
	m, err := ctx.Manifests.Load(srcDir)
	if err != nil {
		return err
	}
	if m == nil || m.Repos[srcName] == nil {
		return newDriver(ctx).RunInteractive(ctx.WorkingDir, append([]string{"mv"}, args...), os.Stdin, ctx.Out, nil)
	}
	dstDir := filepath.Join(ctx.WorkingDir, filepath.Dir(args[1]))
	dstName := filepath.Base(args[1])
	return gitp.Mv(ctx, srcDir, srcName, dstDir, dstName)
}
