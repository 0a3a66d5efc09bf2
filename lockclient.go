package gitp

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sdboyer/constext"
)

// LockClient holds an exclusive advisory lock acquired from a LockServer
// for the lifetime of one WithLock call.
type LockClient interface {
	// WithLock blocks until the lock is granted, runs fn under the
	// server-suggested timeout, sends "done" on return, and surfaces fn's
	// error (or a LockError on protocol/timeout failure).
	WithLock(fn func() error) error
	Close() error
}

type tcpLockClient struct {
	conn   net.Conn
	reader *bufio.Reader
}

// DialLock connects to addr and blocks until the server assigns a request
// ID, per spec §4.9 step 2.
func DialLock(ctx *Context, addr string) (LockClient, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, NewLockError("dialing lock server "+addr, err)
	}
	c := &tcpLockClient{conn: conn, reader: bufio.NewReader(conn)}

	if _, err := c.readToken(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// readToken reads one period-delimited token, tolerating the terminal
// "0:<seconds>" grant frame which carries no trailing period (spec §4.9,
// REDESIGN FLAGS "Lock protocol ambiguities").
func (c *tcpLockClient) readToken() (string, error) {
	var sb strings.Builder
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return "", NewLockError("reading from lock server", err)
		}
		if b == '.' {
			tok := sb.String()
			if tok == "" {
				continue
			}
			return tok, nil
		}
		sb.WriteByte(b)
		if strings.Contains(sb.String(), ":") {
			// "0:<seconds>" is terminal and unterminated; stop at EOF/newline
			// boundary by peeking for more digits only.
			for {
				peek, err := c.reader.Peek(1)
				if err != nil || !isDigit(peek[0]) {
					return sb.String(), nil
				}
				nb, _ := c.reader.ReadByte()
				sb.WriteByte(nb)
			}
		}
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// WithLock waits for place-in-line updates until granted, then runs fn
// under constext, combining a cancellable context with a timer derived from
// the server's suggested timeout.
func (c *tcpLockClient) WithLock(fn func() error) error {
	var suggestedSeconds int
	for {
		tok, err := c.readToken()
		if err != nil {
			return err
		}
		if strings.Contains(tok, ":") {
			parts := strings.SplitN(tok, ":", 2)
			n, convErr := strconv.Atoi(parts[1])
			if convErr != nil {
				return NewLockError(fmt.Sprintf("malformed grant frame %q", tok), convErr)
			}
			suggestedSeconds = n
			break
		}
		// bare integer: place in line, 0 means next-up but not yet granted.
	}

	// cancelCtx is only cancelled by the deferred cancelFn; Ctrl-C is not
	// routed into it, it ends the process, which closes the connection and so
	// gives up the slot. timeoutCtx is the independent server-suggested
	// deadline. constext.Cons combines the two siblings so either one firing
	// stops the wait for fn.
	cancelCtx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()
	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), time.Duration(suggestedSeconds)*time.Second)
	defer timeoutCancel()

	combined, combinedCancel := constext.Cons(cancelCtx, timeoutCtx)
	defer combinedCancel()

	result := make(chan error, 1)
	go func() {
		result <- fn()
	}()

	select {
	case err := <-result:
		c.release()
		return err
	case <-combined.Done():
		return NewLockError("lock hold exceeded suggested timeout, operation aborted", combined.Err())
	}
}

func (c *tcpLockClient) release() {
	c.conn.Write([]byte("done"))
}

func (c *tcpLockClient) Close() error {
	return c.conn.Close()
}
