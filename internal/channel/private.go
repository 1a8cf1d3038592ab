package channel

import (
	"encoding/json"
	"net/http"

	"github.com/srgkas/laravel-echo-server/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Authorizer decides whether a socket may join a channel, calling the
// authentication backend for private channels.
type Authorizer struct {
	classifier *Classifier
	transport  Transport
	auth       Authenticator
	presence   PresenceTracker
}

// NewAuthorizer creates Authorizer. presence may be nil when presence
// channels are not served.
func NewAuthorizer(classifier *Classifier, transport Transport, auth Authenticator, presence PresenceTracker) *Authorizer {
	return &Authorizer{
		classifier: classifier,
		transport:  transport,
		auth:       auth,
		presence:   presence,
	}
}

// AuthorizeAndJoin performs a single join attempt and returns its terminal
// state. Non-private channels are admitted without an authenticator call.
// Private channels block on the authenticator for this request only —
// concurrent attempts by other sockets and channels proceed on their own
// goroutines. Note that back-to-back attempts by one socket to one channel
// may resolve out of issue order unless the authenticator serializes them.
func (a *Authorizer) AuthorizeAndJoin(socket Socket, req SubscriptionRequest) SubscriptionState {
	if req.Channel == "" {
		return Unsubscribed
	}

	if !a.classifier.IsPrivate(req.Channel) {
		_ = a.transport.Join(socket, req.Channel)
		metrics.JoinCount.WithLabelValues("public").Inc()
		log.Debug().Str("channel", req.Channel).Str("socket", socket.ID()).Msg("socket joined channel")
		return Subscribed
	}

	res, err := a.auth.Authenticate(socket.Context(), socket, req)
	if err != nil {
		res = AuthResult{Status: http.StatusBadGateway, Reason: err.Error()}
	}

	// The socket may have disconnected while authentication was in flight.
	// Its ID could already belong to a new connection, so the result is
	// discarded instead of joining a stale membership.
	if socket.Context().Err() != nil {
		log.Debug().Str("channel", req.Channel).Str("socket", socket.ID()).Msg("discarding auth result for disconnected socket")
		return Unsubscribed
	}

	if !res.Success {
		metrics.AuthDeniedCount.Inc()
		log.Debug().Str("channel", req.Channel).Str("socket", socket.ID()).Int("status", res.Status).Str("reason", res.Reason).Msg("subscription denied")
		_ = socket.Emit(SubscriptionErrorEvent, req.Channel, res.Status)
		return Rejected
	}

	_ = a.transport.Join(socket, req.Channel)

	channelType := "private"
	if a.classifier.IsPresence(req.Channel) {
		channelType = "presence"
		if a.presence != nil {
			_ = a.presence.Join(socket, req.Channel, parseMember(res.ChannelData))
		}
	}
	metrics.JoinCount.WithLabelValues(channelType).Inc()
	log.Debug().Str("channel", req.Channel).Str("socket", socket.ID()).Msg("socket joined channel")
	return Subscribed
}

// parseMember extracts a member descriptor from channel_data returned by
// the authenticator. Data which is not valid JSON is kept as a raw string —
// a malformed descriptor never fails the join.
func parseMember(data json.RawMessage) any {
	if len(data) == 0 {
		return nil
	}
	var member any
	if err := json.Unmarshal(data, &member); err != nil {
		return string(data)
	}
	return member
}
