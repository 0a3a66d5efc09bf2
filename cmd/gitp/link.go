package main

import (
	"flag"

	"github.com/gitparent/gitp"
)

type linkCommand struct {
	newest  bool
	filter  string
	overlay bool
	force   bool
}

func (cmd *linkCommand) Name() string      { return "link" }
func (cmd *linkCommand) Args() string      { return "<path> <target>" }
func (cmd *linkCommand) ShortHelp() string { return "Declare a filesystem link entry" }
func (cmd *linkCommand) LongHelp() string {
	return `
Declares path as a link entry pointing at target, or with -overlay as a
top-level overlay entry, then syncs it.
`
}
func (cmd *linkCommand) Hidden() bool { return false }

func (cmd *linkCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.newest, "newest", false, "resolve target to its newest matching subdirectory")
	fs.StringVar(&cmd.filter, "filter", "", "regex restricting which target subdirectories qualify")
	fs.BoolVar(&cmd.overlay, "overlay", false, "declare a top-level overlay instead of a plain link")
	fs.BoolVar(&cmd.force, "force", false, "proceed even if local changes would be clobbered")
}

func (cmd *linkCommand) Run(ctx *gitp.Context, args []string) error {
	if len(args) < 2 {
		return gitp.NewUsageError("link requires <path> <target>")
	}
	driver := newDriver(ctx)
	return gitp.Link(ctx, driver, ctx.WorkingDir, args[0], args[1], gitp.LinkOptions{
		Newest:  cmd.newest,
		Filter:  cmd.filter,
		Overlay: cmd.overlay,
		Force:   cmd.force,
	})
}

type unlinkCommand struct {
	overlay bool
}

func (cmd *unlinkCommand) Name() string      { return "unlink" }
func (cmd *unlinkCommand) Args() string      { return "<path>" }
func (cmd *unlinkCommand) ShortHelp() string { return "Remove a link or overlay entry" }
func (cmd *unlinkCommand) LongHelp() string {
	return `
Removes path's link entry (or, with -overlay, its overlay entry) from its
manifest and .gitignore without touching the materialized target. Overlays
can only be removed this way, not with rm.
`
}
func (cmd *unlinkCommand) Hidden() bool { return false }

func (cmd *unlinkCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.overlay, "overlay", false, "remove a top-level overlay entry")
}

func (cmd *unlinkCommand) Run(ctx *gitp.Context, args []string) error {
	if len(args) < 1 {
		return gitp.NewUsageError("unlink requires a path")
	}
	return gitp.Unlink(ctx, args[0], ctx.WorkingDir, cmd.overlay)
}
