package main

import (
	"flag"

	"github.com/gitparent/gitp"
)

type newCommand struct {
	from       string
	branch     string
	commit     string
	link       string
	linkNewest bool
	linkFilter string
	force      bool
}

func (cmd *newCommand) Name() string      { return "new" }
func (cmd *newCommand) Args() string      { return "<path>" }
func (cmd *newCommand) ShortHelp() string { return "Add a new manifest-tracked child" }
func (cmd *newCommand) LongHelp() string {
	return `
Declares path as a child of the nearest manifest (cloned from -from, or
linked from -link), adds it to .gitignore, and syncs it. On failure the
entry is rolled back.
`
}
func (cmd *newCommand) Hidden() bool { return false }

func (cmd *newCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.from, "from", "", "clone URL for the new child")
	fs.StringVar(&cmd.branch, "branch", "", "pin the child to this branch")
	fs.StringVar(&cmd.commit, "commit", "", "pin the child to this commit")
	fs.StringVar(&cmd.link, "link", "", "link the child to this path instead of cloning")
	fs.BoolVar(&cmd.linkNewest, "newest", false, "resolve the link target to its newest matching subdirectory")
	fs.StringVar(&cmd.linkFilter, "filter", "", "regex restricting which link target subdirectories qualify")
	fs.BoolVar(&cmd.force, "force", false, "proceed even if local changes would be clobbered")
}

func (cmd *newCommand) Run(ctx *gitp.Context, args []string) error {
	if len(args) < 1 {
		return gitp.NewUsageError("new requires a path")
	}
	driver := newDriver(ctx)
	return gitp.NewChild(ctx, driver, ctx.WorkingDir, args[0], gitp.NewChildOptions{
		From:       cmd.from,
		Branch:     cmd.branch,
		Commit:     cmd.commit,
		Link:       cmd.link,
		LinkNewest: cmd.linkNewest,
		LinkFilter: cmd.linkFilter,
		Force:      cmd.force,
	})
}
