package main

import (
	"flag"
	"path/filepath"
	"strings"

	"github.com/gitparent/gitp"
)

type cloneCommand struct {
	force bool
}

func (cmd *cloneCommand) Name() string      { return "clone" }
func (cmd *cloneCommand) Args() string      { return "<src> [dst]" }
func (cmd *cloneCommand) ShortHelp() string { return "Clone a manifest-tracked tree" }
func (cmd *cloneCommand) LongHelp() string {
	return `
Clones src, then recursively syncs every child it declares. When src is a
local repository path, each remote of the new clone is then pointed at the
URL src itself uses for that remote and fetched once; children are cloned
from the URLs their manifests declare.
`
}
func (cmd *cloneCommand) Hidden() bool { return false }

func (cmd *cloneCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.force, "force", false, "proceed even if the destination is non-empty")
}

func (cmd *cloneCommand) Run(ctx *gitp.Context, args []string) error {
	if len(args) < 1 {
		return gitp.NewUsageError("clone requires a source")
	}
	src := args[0]
	dst := ""
	if len(args) > 1 {
		dst = args[1]
	} else {
		dst = filepath.Join(ctx.WorkingDir, strings.TrimSuffix(filepath.Base(src), ".git"))
	}
	driver := newDriver(ctx)
	return gitp.Clone(ctx, driver, src, dst, gitp.SyncOptions{Force: cmd.force})
}
