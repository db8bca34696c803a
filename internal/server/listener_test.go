package server

import (
	"net"
	"testing"
	"time"
)

func TestLimitedListenerEnforcesTotalLimit(t *testing.T) {
	ll, err := newLimitedListener("127.0.0.1:0", 1, 0)
	if err != nil {
		t.Fatalf("newLimitedListener: %v", err)
	}
	defer ll.Close()

	addr := ll.Addr().String()

	accepted := make(chan net.Conn, 2)
	go func() {
		for i := 0; i < 2; i++ {
			c, err := ll.Accept()
			if err != nil {
				return
			}
			accepted <- c
		}
	}()

	c1, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial 1: %v", err)
	}
	defer c1.Close()

	c2, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial 2: %v", err)
	}
	defer c2.Close()

	var first net.Conn
	select {
	case first = <-accepted:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first accepted connection")
	}

	select {
	case <-accepted:
		t.Fatal("expected the second connection to be rejected by the total limit")
	case <-time.After(150 * time.Millisecond):
	}

	first.Close()

	// The rejected second connection was closed, not queued, so a fresh
	// dial is needed to take the freed slot.
	c3, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial 3: %v", err)
	}
	defer c3.Close()

	select {
	case <-accepted:
	case <-time.After(time.Second):
		t.Fatal("expected a slot to free up and a new connection to be accepted")
	}
}

func TestLimitedListenerNoLimitAcceptsMany(t *testing.T) {
	ll, err := newLimitedListener("127.0.0.1:0", 0, 0)
	if err != nil {
		t.Fatalf("newLimitedListener: %v", err)
	}
	defer ll.Close()

	addr := ll.Addr().String()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			c, err := ll.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	for i := 0; i < 3; i++ {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		c.Close()
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for all connections to be accepted")
	}
}
