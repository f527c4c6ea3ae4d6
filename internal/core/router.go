package core

// Router computes broadcast targets from registry snapshots. Delivery
// goes through the sessions' non-blocking queues, so a slow or vanished
// peer never stalls a fan-out or aborts it for other recipients.
type Router struct {
	reg *Registry
}

// NewRouter builds a router over the given registry.
func NewRouter(reg *Registry) *Router {
	return &Router{reg: reg}
}

// BroadcastAll delivers the line to every live session, the instigator
// included. Unauthenticated sessions receive it too (used for the
// shutdown notice).
func (rt *Router) BroadcastAll(line string) {
	for _, v := range rt.reg.Snapshot() {
		v.Send(line)
	}
}

// BroadcastRoom delivers the line to every authenticated session in the
// room. A non-empty exclude skips that session id, so a sender does not
// hear an echo of its own chat line.
func (rt *Router) BroadcastRoom(line, room, exclude string) {
	for _, v := range rt.reg.Snapshot() {
		if !v.Authenticated || v.Room != room || v.ID == exclude {
			continue
		}
		v.Send(line)
	}
}

// SendPrivate delivers the line to the first session holding exactly the
// target username. Returns false when nobody online has that name.
func (rt *Router) SendPrivate(target, line string) bool {
	for _, v := range rt.reg.Snapshot() {
		if v.Authenticated && v.Username == target {
			v.Send(line)
			return true
		}
	}
	return false
}
