// Package transport contains an in-process implementation of the channel
// membership transport consumed by the router.
package transport

import (
	"sync"

	"github.com/srgkas/laravel-echo-server/internal/channel"

	"github.com/rs/zerolog/log"
)

// Hub manages channel memberships of sockets in process memory.
type Hub struct {
	sync.Mutex

	// registry to hold channel members
	// as map[of channel]map[of socket IDs]socket
	rooms map[string]map[string]channel.Socket
}

// NewHub initializes Hub.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[string]channel.Socket),
	}
}

// Join adds socket into a channel registry. Adding twice is safe.
func (h *Hub) Join(socket channel.Socket, ch string) error {
	h.Lock()
	defer h.Unlock()

	_, ok := h.rooms[ch]
	if !ok {
		h.rooms[ch] = make(map[string]channel.Socket)
	}
	h.rooms[ch][socket.ID()] = socket
	return nil
}

// Leave removes socket from a channel registry. Removing a socket which is
// not a member is a no-op.
func (h *Hub) Leave(socket channel.Socket, ch string) error {
	h.Lock()
	defer h.Unlock()

	// try to find membership to delete, return early if not found
	if _, ok := h.rooms[ch]; !ok {
		return nil
	}
	if _, ok := h.rooms[ch][socket.ID()]; !ok {
		return nil
	}

	delete(h.rooms[ch], socket.ID())

	// clean up map if it's needed
	if len(h.rooms[ch]) == 0 {
		delete(h.rooms, ch)
	}

	return nil
}

// IsMember reports whether a socket is currently a member of a channel.
func (h *Hub) IsMember(socketID string, ch string) bool {
	h.Lock()
	defer h.Unlock()
	members, ok := h.rooms[ch]
	if !ok {
		return false
	}
	_, ok = members[socketID]
	return ok
}

// Members returns IDs of sockets currently in a channel.
func (h *Hub) Members(ch string) []string {
	h.Lock()
	defer h.Unlock()
	members, ok := h.rooms[ch]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast emits event with (channel, payload) args to every channel
// member except exclude. Emit errors of individual sockets do not stop
// delivery to the rest.
func (h *Hub) Broadcast(ch string, event string, payload []byte, exclude channel.Socket) error {
	h.Lock()
	members, ok := h.rooms[ch]
	if !ok {
		h.Unlock()
		return nil
	}
	sockets := make([]channel.Socket, 0, len(members))
	for _, s := range members {
		if exclude != nil && s.ID() == exclude.ID() {
			continue
		}
		sockets = append(sockets, s)
	}
	h.Unlock()

	for _, s := range sockets {
		if err := s.Emit(event, ch, payload); err != nil {
			log.Debug().Err(err).Str("channel", ch).Str("socket", s.ID()).Msg("error emitting to socket")
		}
	}
	return nil
}
