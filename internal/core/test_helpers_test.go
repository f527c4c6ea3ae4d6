package core

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeChannel is a scripted core.Channel for driving workers in tests.
type fakeChannel struct {
	reads  chan string
	writes chan string
	done   chan struct{}
	once   sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		reads:  make(chan string, 16),
		writes: make(chan string, 64),
		done:   make(chan struct{}),
	}
}

func (c *fakeChannel) ReadLine() (string, error) {
	select {
	case line, ok := <-c.reads:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	case <-c.done:
		return "", io.EOF
	}
}

func (c *fakeChannel) WriteLine(s string) error {
	select {
	case c.writes <- s:
	default:
	}
	return nil
}

func (c *fakeChannel) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// pushLine scripts one inbound line.
func (c *fakeChannel) pushLine(s string) { c.reads <- s }

// disconnect simulates the peer going away (EOF on next read).
func (c *fakeChannel) disconnect() { close(c.reads) }

// mustWritten waits until a line containing want reaches the channel.
func mustWritten(t *testing.T, c *fakeChannel, want string) string {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case line := <-c.writes:
			if strings.Contains(line, want) {
				return line
			}
		case <-deadline:
			t.Fatalf("no line containing %q was written", want)
			return ""
		}
	}
}

// mustQueued waits until a line containing want lands in the session's
// outbound queue (used when no write loop is running).
func mustQueued(t *testing.T, s *Session, want string) string {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case line := <-s.out:
			if strings.Contains(line, want) {
				return line
			}
		case <-deadline:
			t.Fatalf("no line containing %q was queued for %s", want, s.ID)
			return ""
		}
	}
}

// assertNotQueued drains the session's queue briefly and fails if any
// line contains want.
func assertNotQueued(t *testing.T, s *Session, want string) {
	t.Helper()

	timeout := time.After(150 * time.Millisecond)
	for {
		select {
		case line := <-s.out:
			if strings.Contains(line, want) {
				t.Fatalf("unexpected line containing %q: %q", want, line)
			}
		case <-timeout:
			return
		}
	}
}
