package main

import (
	"flag"
	"fmt"

	"github.com/gitparent/gitp"
)

type stringList []string

func (l *stringList) String() string { return fmt.Sprint([]string(*l)) }
func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

type execCommand struct {
	targets      stringList
	filters      stringList
	modifiedOnly bool
	preview      bool
	stopOnError  bool
}

func (cmd *execCommand) Name() string      { return "exec" }
func (cmd *execCommand) Args() string      { return "[-target path]... [-filter regex]... -- <command> [command...]" }
func (cmd *execCommand) ShortHelp() string { return "Run a command across matching nodes" }
func (cmd *execCommand) LongHelp() string {
	return `
Runs each given command against every node matching a -target path or a
-filter regex (default: every node). Link targets and unmaterialized
nodes are skipped and reported, not executed.
`
}
func (cmd *execCommand) Hidden() bool { return false }

func (cmd *execCommand) Register(fs *flag.FlagSet) {
	fs.Var(&cmd.targets, "target", "restrict to this path (repeatable)")
	fs.Var(&cmd.filters, "filter", "restrict to paths matching this regex (repeatable)")
	fs.BoolVar(&cmd.modifiedOnly, "modified", false, "only run against nodes with local changes")
	fs.BoolVar(&cmd.preview, "preview", false, "print what would run without running it")
	fs.BoolVar(&cmd.stopOnError, "stop-on-error", false, "stop the walk at the first failing node")
}

func (cmd *execCommand) Run(ctx *gitp.Context, args []string) error {
	if len(args) == 0 {
		return gitp.NewUsageError("exec requires at least one command")
	}
	driver := newDriver(ctx)
	results, failures, err := gitp.Exec(ctx, driver, ctx.WorkingDir, args, gitp.ExecOptions{
		Targets:      cmd.targets,
		Filters:      cmd.filters,
		ModifiedOnly: cmd.modifiedOnly,
		Preview:      cmd.preview,
		StopOnError:  cmd.stopOnError,
	})
	if err != nil {
		return err
	}
	for _, r := range results {
		switch {
		case r.Skipped:
			fmt.Fprintf(ctx.Out, "- %s (%s)\n", r.Path, r.SkipWhy)
		case r.Err != nil:
			fmt.Fprintf(ctx.Out, "! %s: %v\n", r.Path, r.Err)
		default:
			fmt.Fprintf(ctx.Out, "✓ %s\n", r.Path)
		}
	}
	if failures > 0 {
		return gitp.NewPreconditionError(fmt.Sprintf("%d node(s) failed", failures), "")
	}
	return nil
}
