// Package bridge routes client events destined for the backend application
// into the cross-process pub/sub transport, and feeds application-originated
// messages back into the gateway.
package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/srgkas/laravel-echo-server/internal/metrics"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/sjson"
)

// Publisher is the pub/sub transport publish primitive consumed by the
// bridge.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Request is a client event offered to the bridge for application routing.
type Request struct {
	// ToApplication marks the event as destined for the backend application.
	ToApplication bool
	// AppChannel is the target application channel, with or without the
	// application channel prefix.
	AppChannel string
	// SourceChannel is the subscriber-facing channel the event arrived on.
	SourceChannel string
	// Data is the event payload, a JSON object.
	Data []byte
}

// Bridge normalizes application channel names and publishes decorated
// payloads. The publisher is optional: running without a cross-process
// backend is a valid deployment, application-bound messages are then
// dropped.
type Bridge struct {
	appGlob   glob.Glob
	appPrefix string
	publisher Publisher
}

// New creates Bridge for the given application channel pattern. publisher
// may be nil.
func New(appPattern string, publisher Publisher) (*Bridge, error) {
	g, err := glob.Compile(appPattern)
	if err != nil {
		return nil, fmt.Errorf("malformed application channel pattern: %w", err)
	}
	return &Bridge{
		appGlob:   g,
		appPrefix: strings.TrimSuffix(appPattern, "*"),
		publisher: publisher,
	}, nil
}

// Route publishes an application-bound request to the pub/sub transport and
// reports whether the request was application-bound at all. The payload is
// decorated with the originating channel under the sourceChannel key. An
// application-bound request is terminal for the caller whether it was
// published or dropped.
func (b *Bridge) Route(ctx context.Context, req Request) bool {
	if !req.ToApplication || req.AppChannel == "" {
		return false
	}

	if b.publisher == nil {
		metrics.AppMessageDroppedCount.Inc()
		return true
	}

	target := req.AppChannel
	if !b.appGlob.Match(target) {
		target = b.appPrefix + target
	}

	data := req.Data
	if len(data) == 0 {
		data = []byte(`{}`)
	}
	payload, err := sjson.SetBytes(data, "sourceChannel", req.SourceChannel)
	if err != nil {
		log.Debug().Str("channel", target).Err(err).Msg("dropping application message with malformed payload")
		metrics.AppMessageDroppedCount.Inc()
		return true
	}

	if err := b.publisher.Publish(ctx, target, payload); err != nil {
		metrics.AppPublishErrorCount.Inc()
		log.Error().Err(err).Str("channel", target).Msg("error publishing application message")
		return true
	}
	metrics.AppMessagePublishedCount.Inc()
	return true
}
