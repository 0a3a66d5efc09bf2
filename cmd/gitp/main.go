// Command gitp composes many ordinary repositories into a single logical
// super-repository described by nested .gitp_manifest files.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gitparent/gitp"
)

type command interface {
	Name() string           // "sync"
	Args() string           // "[target]"
	ShortHelp() string      // "Bring the tree in line with its manifests"
	LongHelp() string       // full usage text
	Register(*flag.FlagSet) // command-specific flags
	Hidden() bool           // omit from top-level help
	Run(*gitp.Context, []string) error
}

func main() {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to get working directory:", err)
		os.Exit(1)
	}
	c := &Config{
		Args:       os.Args,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		WorkingDir: wd,
		Env:        os.Environ(),
	}
	os.Exit(c.Run())
}

// Config specifies a full configuration for a gitp execution.
type Config struct {
	WorkingDir     string
	Args           []string
	Env            []string
	Stdout, Stderr io.Writer
}

// Run executes a configuration and returns a process exit code.
func (c *Config) Run() (exitCode int) {
	commands := []command{
		&syncCommand{},
		&cloneCommand{},
		&pullCommand{},
		&pushCommand{},
		&checkoutCommand{},
		&commitCommand{},
		&newCommand{},
		&linkCommand{},
		&unlinkCommand{},
		&rmCommand{},
		&mvCommand{},
		&addCommand{},
		&remoteCommand{},
		&stashCommand{},
		&execCommand{},
		&statusCommand{},
		&serverCommand{},
		&versionCommand{},
	}

	errLogger := log.New(c.Stderr, "", 0)

	usage := func() {
		errLogger.Println("gitp composes many repositories into one logical tree")
		errLogger.Println()
		errLogger.Println("Usage: gitp <command> [arguments]")
		errLogger.Println()
		errLogger.Println("Commands:")
		errLogger.Println()
		w := tabwriter.NewWriter(c.Stderr, 0, 4, 2, ' ', 0)
		for _, cmd := range commands {
			if !cmd.Hidden() {
				fmt.Fprintf(w, "\t%s\t%s\n", cmd.Name(), cmd.ShortHelp())
			}
		}
		w.Flush()
		errLogger.Println()
		errLogger.Println("Any other command is forwarded to the underlying VCS binary.")
		errLogger.Println("Use \"gitp help <command>\" for more information about a command.")
	}

	cmdName, printCommandHelp, exit := parseArgs(c.Args)
	if exit {
		usage()
		exitCode = 1
		return
	}

	for _, cmd := range commands {
		if cmd.Name() != cmdName {
			continue
		}

		fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
		fs.SetOutput(c.Stderr)
		verbose := fs.Bool("v", false, "enable verbose logging")
		colorFlag := fs.String("color", "auto", "colorize output: auto, always, never")

		cmd.Register(fs)
		resetUsage(errLogger, fs, cmdName, cmd.Args(), cmd.LongHelp())

		if printCommandHelp {
			fs.Usage()
			exitCode = 1
			return
		}

		if err := fs.Parse(c.Args[2:]); err != nil {
			exitCode = 1
			return
		}

		ctx := gitp.NewContextIn(c.WorkingDir)
		ctx.SetVerbose(*verbose)
		ctx.Color = parseColorPolicy(*colorFlag)
		ctx.Out = c.Stdout

		if err := cmd.Run(ctx, fs.Args()); err != nil {
			errLogger.Printf("gitp %s: %v\n", cmdName, err)
			exitCode = gitp.ExitCode(err)
			return
		}
		return
	}

	// Unknown subcommands fall through to the underlying VCS binary,
	// invoked in the current directory (spec §6, "passthrough commands").
	exitCode = runFallthrough(c, cmdName)
	return
}

func colorEnabled(ctx *gitp.Context) bool {
	return gitp.ShouldColorize(ctx.Color, os.Stdout)
}

func newDriver(ctx *gitp.Context) *gitp.Driver {
	return gitp.NewDriver("git", colorEnabled(ctx))
}

func parseColorPolicy(s string) gitp.ColorPolicy {
	switch s {
	case "always":
		return gitp.ColorAlways
	case "never":
		return gitp.ColorNever
	default:
		return gitp.ColorAuto
	}
}

// runFallthrough forwards an unrecognized subcommand straight to the
// underlying VCS binary, in interactive mode: stdin is passed through and
// stdout streams directly (spec §4.1, §5), so an editor/pager a forwarded
// command opens (e.g. `rebase -i`, a bare `commit`) behaves normally instead
// of being buffered and dumped after the fact.
func runFallthrough(c *Config, cmdName string) int {
	if cmdName == "" {
		return 1
	}
	driver := gitp.NewDriver("git", false)
	if err := driver.RunInteractive(c.WorkingDir, c.Args[1:], os.Stdin, c.Stdout, nil); err != nil {
		fmt.Fprintln(c.Stderr, err)
		return gitp.ExitCode(err)
	}
	return 0
}

func resetUsage(logger *log.Logger, fs *flag.FlagSet, name, args, longHelp string) {
	var (
		hasFlags   bool
		flagBlock  bytes.Buffer
		flagWriter = tabwriter.NewWriter(&flagBlock, 0, 4, 2, ' ', 0)
	)
	fs.VisitAll(func(f *flag.Flag) {
		hasFlags = true
		defValue := f.DefValue
		if defValue == "" {
			defValue = "<none>"
		}
		fmt.Fprintf(flagWriter, "\t-%s\t%s (default: %s)\n", f.Name, f.Usage, defValue)
	})
	flagWriter.Flush()
	fs.Usage = func() {
		logger.Printf("Usage: gitp %s %s\n", name, args)
		logger.Println()
		logger.Println(strings.TrimSpace(longHelp))
		logger.Println()
		if hasFlags {
			logger.Println("Flags:")
			logger.Println()
			logger.Println(flagBlock.String())
		}
	}
}

// parseArgs determines the name of the gitp command and whether the user
// asked for help to be printed.
func parseArgs(args []string) (cmdName string, printCmdUsage bool, exit bool) {
	isHelpArg := func() bool {
		return strings.Contains(strings.ToLower(args[1]), "help") || strings.ToLower(args[1]) == "-h"
	}

	switch len(args) {
	case 0, 1:
		exit = true
	case 2:
		if isHelpArg() {
			exit = true
		}
		cmdName = args[1]
	default:
		if isHelpArg() {
			cmdName = args[2]
			printCmdUsage = true
		} else {
			cmdName = args[1]
		}
	}
	return cmdName, printCmdUsage, exit
}

