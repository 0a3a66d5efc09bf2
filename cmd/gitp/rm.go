package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/gitparent/gitp"
)

type rmCommand struct {
	force bool
}

func (cmd *rmCommand) Name() string      { return "rm" }
func (cmd *rmCommand) Args() string      { return "<path>" }
func (cmd *rmCommand) ShortHelp() string { return "Remove a manifest-tracked child" }
func (cmd *rmCommand) LongHelp() string {
	return `
Removes path from its containing manifest and .gitignore, then deletes the
directory or symlink unless local changes would be lost (use -force to
override). Overlays must be removed with "gitp unlink -overlay" instead.
Plain files are passed through to the underlying VCS.
`
}
func (cmd *rmCommand) Hidden() bool { return false }

func (cmd *rmCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.force, "force", false, "remove even if local changes would be lost")
}

func (cmd *rmCommand) Run(ctx *gitp.Context, args []string) error {
	if len(args) < 1 {
		return gitp.NewUsageError("rm requires a path")
	}
	driver := newDriver(ctx)
	containingDir := filepath.Join(ctx.WorkingDir, filepath.Dir(args[0]))
	childName := filepath.Base(args[0])
	m, err := ctx.Manifests.Load(containingDir)
	if err != nil {
		return err
	}
	if m == nil || m.Repos[childName] == nil {
		return driver.RunInteractive(ctx.WorkingDir, append([]string{"rm"}, args...), os.Stdin, ctx.Out, nil)
	}
	return gitp.Rm(ctx, driver, containingDir, childName, gitp.RmOptions{Force: cmd.force})
}
