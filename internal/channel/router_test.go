package channel

import (
	"context"
	"sync"
	"testing"

	"github.com/srgkas/laravel-echo-server/internal/bridge"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type testPublish struct {
	channel string
	payload []byte
}

type testPublisher struct {
	mu        sync.Mutex
	published []testPublish
}

func (p *testPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, testPublish{channel: channel, payload: payload})
	return nil
}

func newTestRouter(t *testing.T, transport *testTransport, auth Authenticator, presence PresenceTracker, publisher bridge.Publisher) *Router {
	t.Helper()
	b, err := bridge.New("app-*", publisher)
	require.NoError(t, err)
	return NewRouter(mustClassifier(DefaultPatterns()), transport, auth, b, presence)
}

func TestRouterRelaysClientEvent(t *testing.T) {
	transport := newTestTransport()
	router := newTestRouter(t, transport, allowAuthenticator(nil), nil, nil)

	sender := newTestSocket("sender")
	require.NoError(t, transport.Join(sender, "private-room1"))

	router.HandleClientEvent(sender, ClientEventRequest{
		Channel: "private-room1",
		Event:   "client-msg",
		Data:    []byte(`{"text":"hi"}`),
	})

	broadcasts := transport.recordedBroadcasts()
	require.Len(t, broadcasts, 1)
	require.Equal(t, "private-room1", broadcasts[0].channel)
	require.Equal(t, "client-msg", broadcasts[0].event)
	require.Equal(t, `{"text":"hi"}`, string(broadcasts[0].payload))
	require.Equal(t, "sender", broadcasts[0].exclude)
}

func TestRouterDropsRejectedClientEventSilently(t *testing.T) {
	transport := newTestTransport()
	router := newTestRouter(t, transport, allowAuthenticator(nil), nil, nil)

	sender := newTestSocket("sender")
	require.NoError(t, transport.Join(sender, "public-room1"))

	router.HandleClientEvent(sender, ClientEventRequest{Channel: "public-room1", Event: "client-msg"})

	require.Empty(t, transport.recordedBroadcasts())
	// Rejected events are ignored, nothing is signalled back to the sender.
	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Empty(t, sender.emitted)
}

func TestRouterIgnoresMalformedClientEvent(t *testing.T) {
	transport := newTestTransport()
	router := newTestRouter(t, transport, allowAuthenticator(nil), nil, nil)

	sender := newTestSocket("sender")
	router.HandleClientEvent(sender, ClientEventRequest{Channel: "private-room1"})
	router.HandleClientEvent(sender, ClientEventRequest{Event: "client-msg"})
	require.Empty(t, transport.recordedBroadcasts())
}

func TestRouterRoutesApplicationBoundEvent(t *testing.T) {
	transport := newTestTransport()
	publisher := &testPublisher{}
	router := newTestRouter(t, transport, allowAuthenticator(nil), nil, publisher)

	sender := newTestSocket("sender")
	router.HandleClientEvent(sender, ClientEventRequest{
		Channel:       "private-room1",
		Event:         "client-order",
		Data:          []byte(`{"x":1}`),
		ToApplication: true,
		AppChannel:    "orders",
	})

	require.Len(t, publisher.published, 1)
	require.Equal(t, "app-orders", publisher.published[0].channel)
	payload := publisher.published[0].payload
	require.Equal(t, int64(1), gjson.GetBytes(payload, "x").Int())
	require.Equal(t, "private-room1", gjson.GetBytes(payload, "sourceChannel").String())
	// Application-bound events are not broadcast to channel members.
	require.Empty(t, transport.recordedBroadcasts())
}

func TestRouterLeaveIsIdempotent(t *testing.T) {
	transport := newTestTransport()
	router := newTestRouter(t, transport, allowAuthenticator(nil), nil, nil)

	socket := newTestSocket("s1")
	router.Leave(socket, "private-room1")
	router.Leave(socket, "private-room1")
	require.False(t, transport.IsMember("s1", "private-room1"))
	require.Empty(t, transport.recordedBroadcasts())
}

func TestRouterLeavePresenceRunsTrackerFirst(t *testing.T) {
	transport := newTestTransport()
	presence := &testPresence{transport: transport}
	router := newTestRouter(t, transport, allowAuthenticator(nil), presence, nil)

	socket := newTestSocket("s1")
	require.Equal(t, Subscribed, router.Join(socket, SubscriptionRequest{Channel: "presence-chat"}))

	router.Leave(socket, "presence-chat")

	require.Len(t, presence.leaves, 1)
	calls := transport.recordedCalls()
	require.Equal(t, []string{"join:presence-chat", "presence_join:presence-chat", "presence_leave:presence-chat", "leave:presence-chat"}, calls)
}

func TestRouterLeaveMissingChannelIsNoOp(t *testing.T) {
	transport := newTestTransport()
	router := newTestRouter(t, transport, allowAuthenticator(nil), nil, nil)
	router.Leave(newTestSocket("s1"), "")
	require.Empty(t, transport.recordedCalls())
}

func TestRouterHandlesApplicationMessage(t *testing.T) {
	transport := newTestTransport()
	router := newTestRouter(t, transport, allowAuthenticator(nil), nil, nil)

	router.HandleApplicationMessage("app-orders", "order-created", []byte(`{"id":1}`))

	broadcasts := transport.recordedBroadcasts()
	require.Len(t, broadcasts, 1)
	require.Equal(t, "app-orders", broadcasts[0].channel)
	require.Equal(t, "order-created", broadcasts[0].event)
	require.Equal(t, "", broadcasts[0].exclude)

	router.HandleApplicationMessage("", "order-created", nil)
	router.HandleApplicationMessage("app-orders", "", nil)
	require.Len(t, transport.recordedBroadcasts(), 1)
}

func TestRouterJoinStates(t *testing.T) {
	transport := newTestTransport()
	router := newTestRouter(t, transport, denyAuthenticator(403, "no access"), nil, nil)

	socket := newTestSocket("s1")
	require.Equal(t, Subscribed, router.Join(socket, SubscriptionRequest{Channel: "public-room"}))
	require.Equal(t, Rejected, router.Join(socket, SubscriptionRequest{Channel: "private-room1"}))
	require.Equal(t, Unsubscribed, router.Join(socket, SubscriptionRequest{}))
}
