package gitp

import (
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func freeTCPPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding a free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func startTestLockServer(t *testing.T, cfg LockServerConfig) string {
	t.Helper()
	cfg.Host = "127.0.0.1"
	if cfg.Port == 0 {
		cfg.Port = freeTCPPort(t)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)

	srv, err := NewLockServer(cfg, log)
	if err != nil {
		t.Fatalf("NewLockServer: %v", err)
	}
	go srv.Serve()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			return addr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("lock server never came up on %s", addr)
	return ""
}

func TestLockServerGrantsSoleWaiterImmediately(t *testing.T) {
	addr := startTestLockServer(t, LockServerConfig{
		HoldTimeout:   2 * time.Second,
		TimeoutMargin: 500 * time.Millisecond,
	})

	client, err := DialLock(nil, addr)
	if err != nil {
		t.Fatalf("DialLock: %v", err)
	}
	defer client.Close()

	ran := false
	if err := client.WithLock(func() error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("WithLock: %v", err)
	}
	if !ran {
		t.Error("expected the protected function to run")
	}
}

func TestLockServerSerializesTwoWaiters(t *testing.T) {
	addr := startTestLockServer(t, LockServerConfig{
		HoldTimeout:   2 * time.Second,
		TimeoutMargin: 500 * time.Millisecond,
	})

	c1, err := DialLock(nil, addr)
	if err != nil {
		t.Fatalf("DialLock c1: %v", err)
	}
	defer c1.Close()
	c2, err := DialLock(nil, addr)
	if err != nil {
		t.Fatalf("DialLock c2: %v", err)
	}
	defer c2.Close()

	var mu sync.Mutex
	var order []int
	orderCh := make(chan struct{}, 2)

	go func() {
		c1.WithLock(func() error {
			mu.Lock()
			order = append(order, 1)
			mu.Unlock()
			time.Sleep(50 * time.Millisecond)
			return nil
		})
		orderCh <- struct{}{}
	}()
	// Give c1 a head start so it is reliably granted first.
	time.Sleep(20 * time.Millisecond)
	go func() {
		c2.WithLock(func() error {
			mu.Lock()
			order = append(order, 2)
			mu.Unlock()
			return nil
		})
		orderCh <- struct{}{}
	}()

	<-orderCh
	<-orderCh

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v, want [1 2] (exclusive, FIFO-ish access)", order)
	}
}

func TestLockServerPropagatesFnError(t *testing.T) {
	addr := startTestLockServer(t, LockServerConfig{
		HoldTimeout:   2 * time.Second,
		TimeoutMargin: 500 * time.Millisecond,
	})

	client, err := DialLock(nil, addr)
	if err != nil {
		t.Fatalf("DialLock: %v", err)
	}
	defer client.Close()

	wantErr := fmt.Errorf("boom")
	err = client.WithLock(func() error { return wantErr })
	if err != wantErr {
		t.Errorf("WithLock returned %v, want %v", err, wantErr)
	}
}

func TestNewLockServerRejectsBadMargin(t *testing.T) {
	_, err := NewLockServer(LockServerConfig{
		HoldTimeout:   time.Second,
		TimeoutMargin: time.Second,
	}, logrus.New())
	if err == nil {
		t.Fatal("expected error when TimeoutMargin >= HoldTimeout")
	}
}
