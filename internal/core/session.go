package core

import "sync"

// Channel is a duplex, line-oriented byte stream to one peer. ReadLine
// blocks until a full line has been decoded or the peer goes away;
// WriteLine is best-effort. Transports own the framing: partial or
// coalesced reads must be reassembled into discrete lines before they
// reach the core.
type Channel interface {
	ReadLine() (string, error)
	WriteLine(s string) error
	Close() error
}

// outboundQueueSize bounds the per-session send queue. Fan-out pushes are
// non-blocking, so a full queue means dropped lines for that session only.
const outboundQueueSize = 32

// Session is one connected peer as seen by the core layer. Username, Room
// and Authenticated are guarded by the registry lock; everything else is
// immutable after construction.
type Session struct {
	ID            string
	Username      string
	Room          string
	Authenticated bool

	ch        Channel
	out       chan string
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(id string, ch Channel) *Session {
	return &Session{
		ID:   id,
		ch:   ch,
		out:  make(chan string, outboundQueueSize),
		done: make(chan struct{}),
	}
}

// Send queues a line for delivery to the peer. It never blocks: the line
// is dropped if the session is closing or its queue is full.
func (s *Session) Send(line string) {
	select {
	case <-s.done:
	default:
		select {
		case s.out <- line:
		default:
		}
	}
}

// Close signals the session to shut down. The write loop drains whatever
// is still queued and then releases the channel, which unblocks any
// pending ReadLine. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// writeLoop drains the outbound queue onto the channel. It is the only
// goroutine that writes to or closes the underlying channel.
func (s *Session) writeLoop() {
	defer s.ch.Close()
	for {
		select {
		case line := <-s.out:
			if err := s.ch.WriteLine(line); err != nil {
				return
			}
		case <-s.done:
			for {
				select {
				case line := <-s.out:
					if err := s.ch.WriteLine(line); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// SessionView is a point-in-time copy of one session's registry state,
// safe to inspect without holding the registry lock. Send and Close act
// on the live session.
type SessionView struct {
	ID            string
	Username      string
	Room          string
	Authenticated bool

	sess *Session
}

// Send queues a line on the underlying session.
func (v SessionView) Send(line string) { v.sess.Send(line) }

// Close shuts down the underlying session.
func (v SessionView) Close() { v.sess.Close() }
