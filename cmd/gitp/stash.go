package main

import (
	"flag"
	"fmt"

	"github.com/gitparent/gitp"
)

type stashCommand struct {
	message string
	branch  string
}

func (cmd *stashCommand) Name() string { return "stash" }
func (cmd *stashCommand) Args() string { return "<push|pop|apply|drop|clear|branch|list|show> [args]" }
func (cmd *stashCommand) ShortHelp() string {
	return "Atomic cross-repo stash stack"
}
func (cmd *stashCommand) LongHelp() string {
	return `
Layers a cross-repo stash stack on top of per-repo stashes, keyed by
timestamp-derived IDs embedded in each repo's own stash message.

  stash push [-m message]        stash every dirty node under one entry
  stash pop [ref]                apply and drop the given (or top) entry
  stash apply [ref]              apply without dropping
  stash drop [ref]                discard without applying
  stash clear                    drop every entry
  stash branch -branch NAME [ref] start a branch from a stash entry
  stash list                     print the .gitp_stashes index
  stash show [ref]                print one entry
`
}
func (cmd *stashCommand) Hidden() bool { return false }

func (cmd *stashCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.message, "m", "", "stash message (push)")
	fs.StringVar(&cmd.branch, "branch", "", "branch name (branch)")
}

func (cmd *stashCommand) Run(ctx *gitp.Context, args []string) error {
	if len(args) < 1 {
		return gitp.NewUsageError("stash requires a subcommand")
	}
	sub, rest := args[0], args[1:]
	sfs := flag.NewFlagSet("stash "+sub, flag.ContinueOnError)
	sfs.StringVar(&cmd.message, "m", cmd.message, "stash message (push)")
	sfs.StringVar(&cmd.branch, "branch", cmd.branch, "branch name (branch)")
	if err := sfs.Parse(rest); err != nil {
		return gitp.NewUsageError("stash %s: %v", sub, err)
	}
	rest = sfs.Args()
	ref := ""
	if len(rest) > 0 {
		ref = rest[0]
	}
	driver := newDriver(ctx)
	topDir := ctx.WorkingDir

	switch sub {
	case "push":
		_, err := gitp.StashPush(ctx, driver, topDir, cmd.message)
		return err
	case "pop":
		return gitp.StashPop(ctx, driver, topDir, ref)
	case "apply":
		return gitp.StashApply(ctx, driver, topDir, ref)
	case "drop":
		return gitp.StashDrop(ctx, driver, topDir, ref)
	case "clear":
		return gitp.StashClear(ctx, driver, topDir)
	case "branch":
		if cmd.branch == "" {
			return gitp.NewUsageError("stash branch requires -branch NAME")
		}
		return gitp.StashBranch(ctx, driver, topDir, cmd.branch, ref)
	case "list":
		out, err := gitp.StashList(topDir)
		if err != nil {
			return err
		}
		fmt.Fprint(ctx.Out, out)
		return nil
	case "show":
		e, err := gitp.StashShow(topDir, ref)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.Out, e.String())
		return nil
	default:
		return gitp.NewUsageError("unknown stash subcommand %q", sub)
	}
}
