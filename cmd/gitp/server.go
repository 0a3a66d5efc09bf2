package main

import (
	"flag"
	"time"

	"github.com/gitparent/gitp"
)

type serverCommand struct {
	host          string
	port          int
	queueSize     int
	holdTimeout   time.Duration
	timeoutMargin time.Duration
}

func (cmd *serverCommand) Name() string      { return "server" }
func (cmd *serverCommand) Args() string      { return "" }
func (cmd *serverCommand) ShortHelp() string { return "Run the distributed lock server" }
func (cmd *serverCommand) LongHelp() string {
	return `
Runs the TCP lock server that push acquires transparently when the top
manifest declares lock_server; pull and fetch run without the lock. Blocks
until killed.
`
}
func (cmd *serverCommand) Hidden() bool { return false }

func (cmd *serverCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.host, "host", "0.0.0.0", "address to listen on")
	fs.IntVar(&cmd.port, "port", 9418, "port to listen on")
	fs.IntVar(&cmd.queueSize, "queue-size", 16, "maximum concurrent waiters")
	fs.DurationVar(&cmd.holdTimeout, "hold-timeout", 2*time.Minute, "hard per-holder lock timeout")
	fs.DurationVar(&cmd.timeoutMargin, "timeout-margin", 10*time.Second, "client-side safety margin subtracted from hold-timeout")
}

func (cmd *serverCommand) Run(ctx *gitp.Context, args []string) error {
	srv, err := gitp.NewLockServer(gitp.LockServerConfig{
		Host:          cmd.host,
		Port:          cmd.port,
		QueueSize:     cmd.queueSize,
		HoldTimeout:   cmd.holdTimeout,
		TimeoutMargin: cmd.timeoutMargin,
	}, ctx.Log)
	if err != nil {
		return err
	}
	ctx.Log.Infof("lock server listening on %s:%d", cmd.host, cmd.port)
	return srv.Serve()
}
