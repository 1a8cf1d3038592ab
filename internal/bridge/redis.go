package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/srgkas/laravel-echo-server/internal/config"

	"github.com/redis/rueidis"
	"github.com/rs/zerolog/log"
)

// Envelope is the message format applications publish on application
// channels: the event name to emit and its payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// decodeEnvelope parses an application message. Messages without a valid
// JSON body or an event name are not deliverable.
func decodeEnvelope(message []byte) (Envelope, bool) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil || env.Event == "" {
		return Envelope{}, false
	}
	return env, true
}

func newRedisClient(cfg config.Redis) (rueidis.Client, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.Address},
		Username:    cfg.User,
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}
	return client, nil
}

// RedisPublisher implements Publisher on top of Redis PUBLISH.
type RedisPublisher struct {
	client rueidis.Client
}

// NewRedisPublisher creates RedisPublisher.
func NewRedisPublisher(cfg config.Redis) (*RedisPublisher, error) {
	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisPublisher{client: client}, nil
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Do(ctx, p.client.B().Publish().Channel(channel).Message(string(payload)).Build()).Error()
}

// Close closes the underlying Redis connection.
func (p *RedisPublisher) Close() {
	p.client.Close()
}

// BroadcastFunc delivers an application-originated message into the
// gateway.
type BroadcastFunc func(channel string, event string, payload []byte)

// RedisSubscriber listens on the application channel pattern and hands each
// received message to a broadcast callback, so application-originated
// messages re-enter the gateway for delivery to channel members.
type RedisSubscriber struct {
	client    rueidis.Client
	pattern   string
	broadcast BroadcastFunc
}

// NewRedisSubscriber creates RedisSubscriber for the given application
// channel pattern.
func NewRedisSubscriber(cfg config.Redis, pattern string, broadcast BroadcastFunc) (*RedisSubscriber, error) {
	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisSubscriber{
		client:    client,
		pattern:   pattern,
		broadcast: broadcast,
	}, nil
}

// Run blocks receiving messages until ctx is done. Malformed envelopes are
// dropped, they never stop the loop.
func (s *RedisSubscriber) Run(ctx context.Context) error {
	log.Info().Str("pattern", s.pattern).Msg("subscribing to application channels")
	err := s.client.Receive(ctx, s.client.B().Psubscribe().Pattern(s.pattern).Build(), func(msg rueidis.PubSubMessage) {
		env, ok := decodeEnvelope([]byte(msg.Message))
		if !ok {
			log.Debug().Str("channel", msg.Channel).Msg("dropping malformed application message")
			return
		}
		s.broadcast(msg.Channel, env.Event, env.Data)
	})
	if err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil) {
		return nil
	}
	return err
}

// Close closes the underlying Redis connection.
func (s *RedisSubscriber) Close() {
	s.client.Close()
}
