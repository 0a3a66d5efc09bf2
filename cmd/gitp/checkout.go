package main

import (
	"flag"
	"os"
	"strings"

	"github.com/gitparent/gitp"
)

type checkoutCommand struct {
	force  bool
	branch bool
}

func (cmd *checkoutCommand) Name() string      { return "checkout" }
func (cmd *checkoutCommand) Args() string      { return "<ref> [child...]" }
func (cmd *checkoutCommand) ShortHelp() string { return "Check out a ref, manifest-aware" }
func (cmd *checkoutCommand) LongHelp() string {
	return `
With no further arguments, checks out ref on the current repo, updates the
parent manifest's pin for it, and re-syncs descendants. With one or more
child paths, instead pulls each child's entry from ref's .gitp_manifest
into the current manifest and syncs just those children. If any of those
paths is not a manifest entry (a plain file, say), the whole command is
handed to the underlying VCS's checkout instead.
`
}
func (cmd *checkoutCommand) Hidden() bool { return false }

func (cmd *checkoutCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.force, "force", false, "proceed even if local changes would be clobbered")
	fs.BoolVar(&cmd.branch, "branch", true, "treat ref as a branch/tag (false pins a commit)")
}

func (cmd *checkoutCommand) Run(ctx *gitp.Context, args []string) error {
	if len(args) < 1 {
		return gitp.NewUsageError("checkout requires a ref")
	}
	ref := args[0]
	driver := newDriver(ctx)
	opts := gitp.CheckoutOptions{Force: cmd.force}

	if len(args) > 1 {
		childPaths := make([]string, len(args)-1)
		for i, p := range args[1:] {
			childPaths[i] = strings.TrimSuffix(p, "/")
		}
		m, err := ctx.Manifests.Load(ctx.WorkingDir)
		if err != nil {
			return err
		}
		for _, p := range childPaths {
			if m == nil || m.Repos[p] == nil {
				return driver.RunInteractive(ctx.WorkingDir, append([]string{"checkout"}, args...), os.Stdin, ctx.Out, nil)
			}
		}
		return gitp.CheckoutManifestRef(ctx, driver, ctx.WorkingDir, ref, childPaths, opts)
	}
	return gitp.Checkout(ctx, driver, ctx.WorkingDir, ref, cmd.branch, opts)
}
