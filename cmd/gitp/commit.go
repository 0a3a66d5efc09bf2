package main

import (
	"flag"
	"fmt"

	"github.com/gitparent/gitp"
)

type commitCommand struct {
	message string
	reuse   string
	file    string
	noEdit  bool
	patch   bool
	edit    bool
}

func (cmd *commitCommand) Name() string      { return "commit" }
func (cmd *commitCommand) Args() string      { return "" }
func (cmd *commitCommand) ShortHelp() string { return "Commit staged changes across the tree" }
func (cmd *commitCommand) LongHelp() string {
	return `
Runs commit in forward depth-first order across every materialized,
non-link, non-overlay node that has staged changes. Interactive modes
(-p, -e) are not supported; use -m, -C, or -F.
`
}
func (cmd *commitCommand) Hidden() bool { return false }

func (cmd *commitCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.message, "m", "", "commit message")
	fs.StringVar(&cmd.reuse, "C", "", "reuse message from the given commit")
	fs.StringVar(&cmd.file, "F", "", "read commit message from file")
	fs.StringVar(&cmd.file, "file", "", "read commit message from file")
	fs.BoolVar(&cmd.noEdit, "no-edit", false, "reuse the existing commit message without editing")
	fs.BoolVar(&cmd.patch, "p", false, "interactively choose hunks (unsupported)")
	fs.BoolVar(&cmd.edit, "e", false, "edit the commit message in $EDITOR (unsupported)")
}

func (cmd *commitCommand) Run(ctx *gitp.Context, args []string) error {
	driver := newDriver(ctx)
	n, err := gitp.Commit(ctx, driver, ctx.WorkingDir, gitp.CommitOptions{
		Message:  cmd.message,
		ReuseRef: cmd.reuse,
		File:     cmd.file,
		NoEdit:   cmd.noEdit,
		Patch:    cmd.patch,
		Edit:     cmd.edit,
	})
	if n > 0 {
		fmt.Fprintf(ctx.Out, "%d repositories failed to commit; see warnings above\n", n)
		if err == nil {
			err = gitp.NewPreconditionError(fmt.Sprintf("%d repositories failed to commit", n), "")
		}
	}
	return err
}
