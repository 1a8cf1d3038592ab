package channel

import (
	"context"
	"sync"
)

type emittedEvent struct {
	event string
	args  []any
}

type testSocket struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	emitted []emittedEvent
}

func newTestSocket(id string) *testSocket {
	ctx, cancel := context.WithCancel(context.Background())
	return &testSocket{id: id, ctx: ctx, cancel: cancel}
}

func (s *testSocket) ID() string {
	return s.id
}

func (s *testSocket) Context() context.Context {
	return s.ctx
}

func (s *testSocket) Emit(event string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitted = append(s.emitted, emittedEvent{event: event, args: args})
	return nil
}

func (s *testSocket) emittedEvents(event string) []emittedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events []emittedEvent
	for _, e := range s.emitted {
		if e.event == event {
			events = append(events, e)
		}
	}
	return events
}

type testBroadcast struct {
	channel string
	event   string
	payload []byte
	exclude string
}

// testTransport records membership and broadcasts. calls keeps an ordered
// log of operations shared with testPresence for ordering assertions.
type testTransport struct {
	mu         sync.Mutex
	members    map[string]map[string]bool
	broadcasts []testBroadcast
	calls      []string
}

func newTestTransport() *testTransport {
	return &testTransport{members: make(map[string]map[string]bool)}
}

func (t *testTransport) Join(socket Socket, ch string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.members[ch]; !ok {
		t.members[ch] = make(map[string]bool)
	}
	t.members[ch][socket.ID()] = true
	t.calls = append(t.calls, "join:"+ch)
	return nil
}

func (t *testTransport) Leave(socket Socket, ch string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.members[ch], socket.ID())
	t.calls = append(t.calls, "leave:"+ch)
	return nil
}

func (t *testTransport) IsMember(socketID string, ch string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.members[ch][socketID]
}

func (t *testTransport) Members(ch string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []string
	for id := range t.members[ch] {
		ids = append(ids, id)
	}
	return ids
}

func (t *testTransport) Broadcast(ch string, event string, payload []byte, exclude Socket) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := testBroadcast{channel: ch, event: event, payload: payload}
	if exclude != nil {
		b.exclude = exclude.ID()
	}
	t.broadcasts = append(t.broadcasts, b)
	t.calls = append(t.calls, "broadcast:"+ch)
	return nil
}

func (t *testTransport) recordedBroadcasts() []testBroadcast {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]testBroadcast(nil), t.broadcasts...)
}

func (t *testTransport) recordedCalls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

type presenceCall struct {
	socketID string
	channel  string
	member   any
}

// testPresence records presence joins/leaves, optionally sharing the
// transport call log to assert ordering between the two collaborators.
type testPresence struct {
	mu        sync.Mutex
	joins     []presenceCall
	leaves    []presenceCall
	transport *testTransport
}

func (p *testPresence) Join(socket Socket, ch string, member any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.joins = append(p.joins, presenceCall{socketID: socket.ID(), channel: ch, member: member})
	if p.transport != nil {
		p.transport.mu.Lock()
		p.transport.calls = append(p.transport.calls, "presence_join:"+ch)
		p.transport.mu.Unlock()
	}
	return nil
}

func (p *testPresence) Leave(socket Socket, ch string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.leaves = append(p.leaves, presenceCall{socketID: socket.ID(), channel: ch})
	if p.transport != nil {
		p.transport.mu.Lock()
		p.transport.calls = append(p.transport.calls, "presence_leave:"+ch)
		p.transport.mu.Unlock()
	}
	return nil
}

func mustClassifier(patterns Patterns) *Classifier {
	c, err := NewClassifier(patterns)
	if err != nil {
		panic(err)
	}
	return c
}

// countingAuthenticator wraps an Authenticator counting its invocations.
type countingAuthenticator struct {
	mu    sync.Mutex
	calls int
	inner Authenticator
}

func (a *countingAuthenticator) Authenticate(ctx context.Context, socket Socket, req SubscriptionRequest) (AuthResult, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	return a.inner.Authenticate(ctx, socket, req)
}

func (a *countingAuthenticator) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func allowAuthenticator(channelData []byte) Authenticator {
	return AuthenticatorFunc(func(_ context.Context, _ Socket, _ SubscriptionRequest) (AuthResult, error) {
		return AuthResult{Success: true, ChannelData: channelData}, nil
	})
}

func denyAuthenticator(status int, reason string) Authenticator {
	return AuthenticatorFunc(func(_ context.Context, _ Socket, _ SubscriptionRequest) (AuthResult, error) {
		return AuthResult{Status: status, Reason: reason}, nil
	})
}
