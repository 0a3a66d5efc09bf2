package main

import (
	"flag"
	"fmt"
	"runtime"

	"github.com/gitparent/gitp"
)

// Version is the gitp release version, set by the linker at build time.
var Version = "0.0.0-dev"

// GitCommit is the commit the running binary was built from, set by the
// linker at build time.
var GitCommit string

type versionCommand struct{}

func (cmd *versionCommand) Name() string      { return "version" }
func (cmd *versionCommand) Args() string      { return "" }
func (cmd *versionCommand) ShortHelp() string { return "Display version" }
func (cmd *versionCommand) LongHelp() string  { return "Display version, commit, and platform." }
func (cmd *versionCommand) Hidden() bool      { return false }
func (cmd *versionCommand) Register(fs *flag.FlagSet) {}

func (cmd *versionCommand) Run(ctx *gitp.Context, args []string) error {
	fmt.Fprintf(ctx.Out, "gitp %s %s %s/%s\n", Version, GitCommit, runtime.GOOS, runtime.GOARCH)
	return nil
}
