package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Authenticator is the credential gate as the worker consumes it: one
// call that either validates the pair or claims the name on first use.
// The returned username is the canonical form the gate authenticated;
// the session registers under that name, not the raw input line.
type Authenticator interface {
	AuthenticateOrRegister(ctx context.Context, username, password string) (string, error)
}

// Worker drives one session from admission to close: credential
// handshake, registration, dispatch loop, deregistration. One worker
// goroutine per connection; the only shared state is the registry.
type Worker struct {
	reg        *Registry
	router     *Router
	dispatcher *Dispatcher
	gate       Authenticator
	log        *zerolog.Logger
}

// NewWorker builds a session worker.
func NewWorker(reg *Registry, router *Router, dispatcher *Dispatcher, gate Authenticator, logger *zerolog.Logger) *Worker {
	return &Worker{
		reg:        reg,
		router:     router,
		dispatcher: dispatcher,
		gate:       gate,
		log:        logger,
	}
}

// Run handles a freshly admitted, unauthenticated session: it negotiates
// identity over the channel, then enters the dispatch loop. It returns
// when the channel is gone and the session has been deregistered.
func (w *Worker) Run(ctx context.Context, sess *Session) {
	go sess.writeLoop()
	defer sess.Close()

	username, err := w.negotiate(ctx, sess)
	if err != nil {
		// Pre-auth failures are silent: the session has no room yet,
		// so there is nothing to announce.
		_, _, _ = w.reg.Remove(sess.ID)
		w.log.Debug().Err(err).Str("session_id", sess.ID).Msg("session closed before authentication")
		return
	}

	if err := w.activate(sess, username); err != nil {
		return
	}
	w.loop(ctx, sess)
}

// RunAuthenticated is the entry point for transports that authenticate
// out-of-band (the WebSocket transport hands over a token-verified
// username): the line handshake is skipped, everything else is identical.
func (w *Worker) RunAuthenticated(ctx context.Context, sess *Session, username string) {
	go sess.writeLoop()
	defer sess.Close()

	w.dispatcher.RecordAuth(username, nil)
	if err := w.activate(sess, username); err != nil {
		return
	}
	w.loop(ctx, sess)
}

// negotiate reads the username and password lines and runs them through
// the gate. Any read failure or rejection ends the session.
func (w *Worker) negotiate(ctx context.Context, sess *Session) (string, error) {
	sess.Send("[Server]: Username:")
	username, err := sess.ch.ReadLine()
	if err != nil {
		return "", fmt.Errorf("read username: %w", err)
	}

	sess.Send("[Server]: Password:")
	password, err := sess.ch.ReadLine()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	name, err := w.gate.AuthenticateOrRegister(ctx, username, password)
	if err != nil {
		sess.Send("[Server]: Authentication failed: " + err.Error() + ".")
		w.dispatcher.RecordAuth(username, err)
		return "", fmt.Errorf("authenticate: %w", err)
	}
	w.dispatcher.RecordAuth(name, nil)
	return name, nil
}

// activate registers the identity, greets the peer and announces the
// arrival to the default room.
func (w *Worker) activate(sess *Session, username string) error {
	if err := w.reg.MarkAuthenticated(sess.ID, username); err != nil {
		if errors.Is(err, ErrNameInUse) {
			sess.Send(fmt.Sprintf("[Server]: The name '%s' is already in use.", username))
		}
		_, _, _ = w.reg.Remove(sess.ID)
		w.log.Debug().Err(err).Str("username", username).Msg("session rejected at registration")
		return err
	}

	w.log.Info().Str("username", username).Str("session_id", sess.ID).Msg("user authenticated")

	sess.Send(fmt.Sprintf("[Server]: Welcome, %s! You are in room '%s'.", username, DefaultRoom))
	w.dispatcher.SendHelp(sess)
	w.router.BroadcastRoom(fmt.Sprintf("[Server]: %s joined the room", username), DefaultRoom, sess.ID)
	return nil
}

// loop feeds inbound lines to the dispatcher until the channel dies, then
// deregisters and announces the departure.
func (w *Worker) loop(ctx context.Context, sess *Session) {
	for {
		line, err := sess.ch.ReadLine()
		if err != nil {
			break
		}
		w.dispatcher.Dispatch(sess, line)
	}

	username, room, err := w.reg.Remove(sess.ID)
	if err != nil {
		// Lost a remove race with shutdown; someone else announced.
		return
	}
	w.log.Info().Str("username", username).Str("session_id", sess.ID).Msg("user disconnected")
	w.router.BroadcastRoom(fmt.Sprintf("[Server]: %s left the room", username), room, "")
}
