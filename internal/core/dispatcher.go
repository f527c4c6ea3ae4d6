package core

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ShutdownNotice is broadcast to every session before the server closes
// their channels.
const ShutdownNotice = "[Server]: Server is shutting down. Goodbye."

// ServerFullNotice is the one-line rejection sent when admission fails.
const ServerFullNotice = "[Server]: Server is full, try again later."

var helpLines = []string{
	"[Server]: Available commands:",
	"[Server]:   /help            show this menu",
	"[Server]:   /pm <user> <msg> send a private message",
	"[Server]:   /room            show your current room",
	"[Server]:   /join <name>     move to another room",
	"[Server]:   /users           list users in your room",
	"[Server]:   /rooms           list active rooms",
}

// Dispatcher classifies each inbound line of an active session as a
// command or a chat message and drives the router accordingly. It is
// stateless per line; all session state lives in the registry.
type Dispatcher struct {
	reg      *Registry
	router   *Router
	activity *zerolog.Logger
	now      func() time.Time
}

// NewDispatcher builds a dispatcher. activity receives one record per
// authentication outcome, room move and chat line (the append-only
// activity sink).
func NewDispatcher(reg *Registry, router *Router, activity *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		reg:      reg,
		router:   router,
		activity: activity,
		now:      time.Now,
	}
}

// Dispatch handles one raw inbound line for the session. Lines from
// sessions that are gone or not yet authenticated are ignored.
func (d *Dispatcher) Dispatch(sess *Session, line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}

	v, ok := d.reg.Get(sess.ID)
	if !ok || !v.Authenticated {
		return
	}

	cmd, rest := splitCommand(line)
	switch cmd {
	case "/help":
		d.sendHelp(v)
	case "/pm":
		d.privateMessage(v, rest)
	case "/room":
		v.Send(fmt.Sprintf("[Server]: You are in room '%s'.", v.Room))
	case "/join":
		d.joinRoom(v, rest)
	case "/users":
		d.listUsers(v)
	case "/rooms":
		d.listRooms(v)
	default:
		if strings.HasPrefix(line, "/") {
			v.Send(fmt.Sprintf("[Server]: Unknown command '%s'. Type /help for the command list.", cmd))
			return
		}
		d.chat(v, line)
	}
}

// RecordAuth appends an authentication outcome to the activity sink.
func (d *Dispatcher) RecordAuth(username string, err error) {
	e := d.activity.Info().
		Str("event", "auth").
		Str("user", username).
		Bool("ok", err == nil)
	if err != nil {
		e = e.Str("reason", err.Error())
	}
	e.Send()
}

// SendHelp delivers the command menu to the session.
func (d *Dispatcher) SendHelp(sess *Session) {
	for _, l := range helpLines {
		sess.Send(l)
	}
}

func (d *Dispatcher) sendHelp(v SessionView) {
	for _, l := range helpLines {
		v.Send(l)
	}
}

func (d *Dispatcher) chat(v SessionView, text string) {
	stamp := d.now().Format("15:04:05")
	line := fmt.Sprintf("[%s] [%s] %s: %s", stamp, v.Room, v.Username, text)

	d.activity.Info().
		Str("event", "chat").
		Str("user", v.Username).
		Str("room", v.Room).
		Msg(text)

	d.router.BroadcastRoom(line, v.Room, v.ID)
}

func (d *Dispatcher) privateMessage(v SessionView, rest string) {
	target, text, _ := strings.Cut(strings.TrimSpace(rest), " ")
	text = strings.TrimSpace(text)
	if target == "" || text == "" {
		v.Send("[Server]: Usage: /pm <user> <message>")
		return
	}

	if !d.router.SendPrivate(target, fmt.Sprintf("[PM from %s]: %s", v.Username, text)) {
		v.Send(fmt.Sprintf("[Server]: No user named '%s' is online.", target))
		return
	}
	v.Send(fmt.Sprintf("[PM to %s]: %s", target, text))
}

func (d *Dispatcher) joinRoom(v SessionView, rest string) {
	name := strings.TrimSpace(rest)
	if name == "" {
		v.Send("[Server]: Usage: /join <room>")
		return
	}

	old := v.Room
	if err := d.reg.SetRoom(v.ID, name); err != nil {
		return
	}

	d.activity.Info().
		Str("event", "join").
		Str("user", v.Username).
		Str("from", old).
		Str("to", name).
		Send()

	// Both rooms see the move, the mover included; the personal
	// confirmation goes to the mover alone.
	d.router.BroadcastRoom(fmt.Sprintf("[Server]: %s left the room", v.Username), old, "")
	d.router.BroadcastRoom(fmt.Sprintf("[Server]: %s joined the room", v.Username), name, "")
	v.Send(fmt.Sprintf("[Server]: You joined room '%s'.", name))
}

func (d *Dispatcher) listUsers(v SessionView) {
	var names []string
	for _, s := range d.reg.Snapshot() {
		if s.Authenticated && s.Room == v.Room {
			names = append(names, s.Username)
		}
	}
	v.Send(fmt.Sprintf("[Server]: Users in '%s': %s", v.Room, strings.Join(names, ", ")))
}

func (d *Dispatcher) listRooms(v SessionView) {
	counts := make(map[string]int)
	for _, s := range d.reg.Snapshot() {
		if s.Authenticated {
			counts[s.Room]++
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s (%d)", name, counts[name]))
	}
	v.Send("[Server]: Active rooms: " + strings.Join(parts, ", "))
}

// splitCommand separates the leading token from the remainder of the line.
func splitCommand(line string) (cmd, rest string) {
	cmd, rest, _ = strings.Cut(line, " ")
	return cmd, rest
}
