// Package registry tracks online connections so the server can route
// live fan-out (new messages, conversation refreshes) to every affected
// participant, not just the one who triggered the change.
//
// The shape — a mutex-guarded map from uid to a small per-conn struct,
// with register/unregister and a broadcast-style iteration — is
// the same as typesocket.Hub (vuvuzela-alpenhorn/typesocket/hub.go),
// with the websocket transport and its send-channel/writePump replaced by
// a directly-written *tls.Conn, since this protocol writes whole frames
// synchronously rather than through a buffered outbound queue.
package registry

import (
	"crypto/tls"
	"sync"

	"github.com/duskrelay/chatserver/internal/wire"
)

// Conn is one authenticated connection's registry entry.
type Conn struct {
	TLS      *tls.Conn
	UID      uint32
	Username string

	// writeMu serializes writes to TLS from the owning read-loop goroutine
	// and from fan-out notifications triggered by other connections.
	writeMu sync.Mutex
}

// Send writes a single frame to this connection.
func (c *Conn) Send(typ wire.Type, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wire.WritePacket(c.TLS, typ, payload)
}

// Registry is the set of currently authenticated connections.
type Registry struct {
	mu    sync.Mutex
	byUID map[uint32]*Conn
}

func New() *Registry {
	return &Registry{byUID: make(map[uint32]*Conn)}
}

// Add registers conn as uid's live connection. If uid already has a
// connection registered, it is replaced: the newer connection becomes the
// one fan-out notifications target, matching the "most recently
// authenticated wins" policy for reconnects from the same account.
func (r *Registry) Add(uid uint32, conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUID[uid] = conn
}

// Remove unregisters conn if it is still the one registered for uid. A
// stale unregister from an already-replaced connection is a no-op, so an
// old connection's teardown can't evict a newer one's registration.
func (r *Registry) Remove(uid uint32, conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byUID[uid]; ok && cur == conn {
		delete(r.byUID, uid)
	}
}

// Lookup returns uid's live connection, if any.
func (r *Registry) Lookup(uid uint32) (*Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byUID[uid]
	return c, ok
}

// Snapshot returns the live connections for the given uids that are
// currently online, for use by fan-out notification helpers.
func (r *Registry) Snapshot(uids []uint32) []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Conn, 0, len(uids))
	for _, uid := range uids {
		if c, ok := r.byUID[uid]; ok {
			out = append(out, c)
		}
	}
	return out
}
