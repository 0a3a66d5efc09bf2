package gitp

import (
	"bufio"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LockServerConfig holds the server-configurable knobs named in spec §4.9.
type LockServerConfig struct {
	Host          string
	Port          int
	QueueSize     int
	HoldTimeout   time.Duration
	TimeoutMargin time.Duration
}

// LockServer is the event-driven TCP queue: one goroutine per connection,
// a single mutex serializing all waiter-queue mutations.
type LockServer struct {
	cfg LockServerConfig
	log *logrus.Logger

	mu      sync.Mutex
	waiters []*waiter
	ids     map[uint16]bool
	holder  *waiter
}

type waiter struct {
	id   uint16
	conn net.Conn
	w    *bufio.Writer
	done chan struct{}
}

// NewLockServer validates cfg (timeout margin must be strictly less than
// the hold timeout) and constructs a server ready to Serve.
func NewLockServer(cfg LockServerConfig, log *logrus.Logger) (*LockServer, error) {
	if cfg.TimeoutMargin >= cfg.HoldTimeout {
		return nil, NewUsageError("timeout margin must be strictly less than hold timeout")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	return &LockServer{
		cfg: cfg,
		log: log,
		ids: make(map[uint16]bool),
	}, nil
}

// Serve listens on cfg.Host:cfg.Port and accepts connections until
// listener.Close or a fatal accept error.
func (s *LockServer) Serve() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return NewLockError("listening on "+addr, err)
	}
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return NewLockError("accepting connection", err)
		}
		go s.handleConn(conn)
	}
}

func (s *LockServer) handleConn(conn net.Conn) {
	defer conn.Close()

	s.mu.Lock()
	if len(s.waiters) >= s.cfg.QueueSize {
		s.mu.Unlock()
		return
	}
	id := s.newID()
	w := &waiter{id: id, conn: conn, w: bufio.NewWriter(conn), done: make(chan struct{})}
	s.waiters = append(s.waiters, w)
	s.mu.Unlock()

	fmt.Fprintf(w.w, "%d.", id)
	w.w.Flush()

	s.announcePositions()
	s.maybeGrant()

	// Block on either the connection closing or the holder releasing/timing
	// out; a trivial read loop detects disconnect and an explicit "done".
	buf := make([]byte, 64)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			s.removeWaiter(w)
			return
		}
		if n > 0 && looksLikeDone(buf[:n]) {
			s.release(w)
			return
		}
	}
}

func looksLikeDone(b []byte) bool {
	s := string(b)
	for i := 0; i+4 <= len(s); i++ {
		if s[i:i+4] == "done" {
			return true
		}
	}
	return false
}

func (s *LockServer) newID() uint16 {
	for {
		id := uint16(rand.Intn(1 << 16))
		if !s.ids[id] {
			s.ids[id] = true
			return id
		}
	}
}

// announcePositions sends every queued (non-holding) waiter its zero-based
// place in line, invariant (2): a queue reshuffle notifies all remaining
// waiters.
func (s *LockServer) announcePositions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.announcePositionsLocked()
}

func (s *LockServer) announcePositionsLocked() {
	pos := 0
	for _, w := range s.waiters {
		if s.holder == w {
			continue
		}
		fmt.Fprintf(w.w, "%d.", pos)
		w.w.Flush()
		pos++
	}
}

// maybeGrant promotes the front of the queue to holder if nothing currently
// holds the lock, invariant (1): at most one waiter ever sees place==0
// concurrently with a grant.
func (s *LockServer) maybeGrant() {
	s.mu.Lock()
	if s.holder != nil || len(s.waiters) == 0 {
		s.mu.Unlock()
		return
	}
	next := s.waiters[0]
	s.holder = next
	s.mu.Unlock()

	suggested := s.cfg.HoldTimeout - s.cfg.TimeoutMargin
	fmt.Fprintf(next.w, "0:%d", int(suggested.Seconds()))
	next.w.Flush()

	go s.enforceTimeout(next)
}

func (s *LockServer) enforceTimeout(w *waiter) {
	select {
	case <-w.done:
	case <-time.After(s.cfg.HoldTimeout):
		s.log.WithField("lock_id", w.id).Warn("lock holder exceeded hold timeout, forfeiting")
		s.removeWaiter(w)
	}
}

// release drops w's hold and id (idempotent: a re-release after disconnect
// is a harmless no-op, invariant (3)), then advances the queue.
func (s *LockServer) release(w *waiter) {
	s.mu.Lock()
	if s.holder == w {
		s.holder = nil
	}
	s.removeFromQueueLocked(w)
	s.mu.Unlock()

	closeWaiter(w)
	s.announcePositions()
	s.maybeGrant()
}

func (s *LockServer) removeWaiter(w *waiter) {
	s.mu.Lock()
	wasHolder := s.holder == w
	if wasHolder {
		s.holder = nil
	}
	s.removeFromQueueLocked(w)
	s.mu.Unlock()

	closeWaiter(w)
	s.announcePositions()
	s.maybeGrant()
}

func (s *LockServer) removeFromQueueLocked(w *waiter) {
	if s.ids != nil {
		delete(s.ids, w.id)
	}
	for i, cand := range s.waiters {
		if cand == w {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			break
		}
	}
}

func closeWaiter(w *waiter) {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}
