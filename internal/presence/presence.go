// Package presence contains an in-process presence tracker which maintains
// member descriptors of presence channels and diff-broadcasts membership
// changes to subscribers.
package presence

import (
	"encoding/json"
	"sync"

	"github.com/srgkas/laravel-echo-server/internal/channel"
)

// Events emitted by the tracker.
const (
	// SubscribedEvent carries the full member list to a socket which just
	// joined a presence channel.
	SubscribedEvent = "presence:subscribed"
	// JoiningEvent carries the new member descriptor to existing members.
	JoiningEvent = "presence:joining"
	// LeavingEvent carries the leaving member descriptor to remaining
	// members.
	LeavingEvent = "presence:leaving"
)

// Tracker implements channel.PresenceTracker in process memory.
type Tracker struct {
	mu sync.Mutex

	// registry to hold presence members
	// as map[of channel]map[of socket IDs]member descriptor
	members map[string]map[string]any

	transport channel.Transport
}

// NewTracker creates Tracker broadcasting through the given transport.
func NewTracker(transport channel.Transport) *Tracker {
	return &Tracker{
		members:   make(map[string]map[string]any),
		transport: transport,
	}
}

// Join registers a member and notifies the channel: existing members get a
// JoiningEvent diff, the joining socket gets the full member list. A second
// join by the same socket replaces its descriptor.
func (t *Tracker) Join(socket channel.Socket, ch string, member any) error {
	t.mu.Lock()
	members, ok := t.members[ch]
	if !ok {
		members = make(map[string]any)
		t.members[ch] = members
	}
	members[socket.ID()] = member
	list := make([]any, 0, len(members))
	for _, m := range members {
		list = append(list, m)
	}
	t.mu.Unlock()

	joining, err := json.Marshal(member)
	if err != nil {
		return err
	}
	if err := t.transport.Broadcast(ch, JoiningEvent, joining, socket); err != nil {
		return err
	}

	all, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return socket.Emit(SubscribedEvent, ch, all)
}

// Leave removes a member and broadcasts a LeavingEvent diff to the rest.
// Leaving a channel without membership is a no-op.
func (t *Tracker) Leave(socket channel.Socket, ch string) error {
	t.mu.Lock()
	members, ok := t.members[ch]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	member, ok := members[socket.ID()]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	delete(members, socket.ID())
	if len(members) == 0 {
		delete(t.members, ch)
	}
	t.mu.Unlock()

	leaving, err := json.Marshal(member)
	if err != nil {
		return err
	}
	return t.transport.Broadcast(ch, LeavingEvent, leaving, socket)
}

// MembersOf returns current member descriptors of a channel.
func (t *Tracker) MembersOf(ch string) []any {
	t.mu.Lock()
	defer t.mu.Unlock()
	members, ok := t.members[ch]
	if !ok {
		return nil
	}
	list := make([]any, 0, len(members))
	for _, m := range members {
		list = append(list, m)
	}
	return list
}
