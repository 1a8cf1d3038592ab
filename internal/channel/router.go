package channel

import (
	"github.com/srgkas/laravel-echo-server/internal/bridge"
	"github.com/srgkas/laravel-echo-server/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Router composes the classifier, authorizer, event gate and application
// bridge into join, leave and client event handling against the transport.
// The connection transport calls into Router from its own request handling
// goroutines; Router holds no state of its own across calls.
type Router struct {
	classifier *Classifier
	transport  Transport
	authorizer *Authorizer
	gate       *EventGate
	bridge     *bridge.Bridge
	presence   PresenceTracker
}

// NewRouter creates Router. presence may be nil when presence channels are
// not served.
func NewRouter(classifier *Classifier, transport Transport, auth Authenticator, b *bridge.Bridge, presence PresenceTracker) *Router {
	return &Router{
		classifier: classifier,
		transport:  transport,
		authorizer: NewAuthorizer(classifier, transport, auth, presence),
		gate:       NewEventGate(classifier, transport),
		bridge:     b,
		presence:   presence,
	}
}

// Join handles a join attempt and returns its terminal state.
func (r *Router) Join(socket Socket, req SubscriptionRequest) SubscriptionState {
	return r.authorizer.AuthorizeAndJoin(socket, req)
}

// Leave removes a socket from a channel. Leaving a channel which was never
// joined is a no-op. For presence channels the presence leave hook runs
// before transport removal so the leave broadcast precedes it.
func (r *Router) Leave(socket Socket, channel string) {
	if channel == "" {
		return
	}
	if r.presence != nil && r.classifier.IsPresence(channel) {
		_ = r.presence.Leave(socket, channel)
	}
	_ = r.transport.Leave(socket, channel)
	log.Debug().Str("channel", channel).Str("socket", socket.ID()).Msg("socket left channel")
}

// HandleClientEvent routes a client-originated event: application-bound
// events go to the bridge, everything else is relayed to the other channel
// members when the event gate admits it. Malformed and rejected events are
// silently dropped.
func (r *Router) HandleClientEvent(socket Socket, req ClientEventRequest) {
	if req.Channel == "" || req.Event == "" {
		return
	}

	if r.bridge.Route(socket.Context(), bridge.Request{
		ToApplication: req.ToApplication,
		AppChannel:    req.AppChannel,
		SourceChannel: req.Channel,
		Data:          req.Data,
	}) {
		return
	}

	if !r.gate.IsEventAcceptable(socket, req) {
		metrics.ClientEventDroppedCount.Inc()
		return
	}

	_ = r.transport.Broadcast(req.Channel, req.Event, req.Data, socket)
	metrics.ClientEventRelayedCount.Inc()
}

// HandleApplicationMessage rebroadcasts an application-originated message
// received from the pub/sub transport to all members of a channel.
func (r *Router) HandleApplicationMessage(channel string, event string, payload []byte) {
	if channel == "" || event == "" {
		return
	}
	_ = r.transport.Broadcast(channel, event, payload, nil)
}
