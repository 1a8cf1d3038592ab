package channel

import (
	"context"
	"encoding/json"
)

// Socket represents a single connected client as seen by the routing core.
// The connection transport owns the socket lifecycle; its context is done
// once the socket disconnected.
type Socket interface {
	ID() string
	Context() context.Context
	Emit(event string, args ...any) error
}

// Transport is the connection-layer collaborator maintaining channel
// membership and delivering events. Implementations must keep membership
// mutations safe under concurrent invocation, and Join/Leave idempotent.
type Transport interface {
	Join(socket Socket, channel string) error
	Leave(socket Socket, channel string) error
	IsMember(socketID string, channel string) bool
	Members(channel string) []string
	Broadcast(channel string, event string, payload []byte, exclude Socket) error
}

// PresenceTracker maintains the member set of presence channels and
// diff-broadcasts join/leave to subscribers.
type PresenceTracker interface {
	Join(socket Socket, channel string, member any) error
	Leave(socket Socket, channel string) error
}

// Authenticator validates a subscriber's right to join a private channel.
// Implementations typically call a remote backend, so Authenticate may
// block for the duration of a network round trip. A non-nil error means the
// backend could not be reached, not that access was denied.
type Authenticator interface {
	Authenticate(ctx context.Context, socket Socket, req SubscriptionRequest) (AuthResult, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, socket Socket, req SubscriptionRequest) (AuthResult, error)

// Authenticate implements Authenticator.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, socket Socket, req SubscriptionRequest) (AuthResult, error) {
	return f(ctx, socket, req)
}

// SubscriptionRequest is a single join attempt. Auth carries opaque
// token/signature material for the authenticator.
type SubscriptionRequest struct {
	Channel     string          `json:"channel"`
	ChannelData json.RawMessage `json:"channel_data,omitempty"`
	Auth        json.RawMessage `json:"auth,omitempty"`
}

// AuthResult is the outcome of a private channel authentication attempt.
// The two outcomes are values, not errors: Success with optional
// ChannelData, or denial with Status and Reason.
type AuthResult struct {
	Success     bool
	ChannelData json.RawMessage
	Status      int
	Reason      string
}

// ClientEventRequest is a single client-originated event.
type ClientEventRequest struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
	// ToApplication routes the event to the backend application through the
	// pub/sub transport instead of broadcasting it to channel members.
	ToApplication bool   `json:"toApplication,omitempty"`
	AppChannel    string `json:"appChannel,omitempty"`
}

// SubscriptionState describes the state of a single subscription attempt.
type SubscriptionState int

const (
	// Unsubscribed means no membership: the request was malformed, never
	// made, or its result was discarded after disconnect.
	Unsubscribed SubscriptionState = iota
	// PendingAuth means a private channel join awaiting the authenticator.
	PendingAuth
	// Subscribed means the socket is a channel member.
	Subscribed
	// Rejected is terminal for the attempt; a client may retry with a new
	// join request.
	Rejected
)

func (s SubscriptionState) String() string {
	switch s {
	case PendingAuth:
		return "pending_auth"
	case Subscribed:
		return "subscribed"
	case Rejected:
		return "rejected"
	default:
		return "unsubscribed"
	}
}

// SubscriptionErrorEvent is emitted to the requesting socket when the
// authenticator denies a private channel join.
const SubscriptionErrorEvent = "subscription_error"
