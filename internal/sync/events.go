// Storesync - Storefront Catalog Mirror & Sync Scheduler
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storesync

package sync

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/storesync/internal/logging"
	"github.com/tomtom215/storesync/internal/models"
)

// TopicProgress carries ProgressEvent messages for every catalog processed
// by either policy.
const TopicProgress = "sync.progress"

// ProgressEvent is one catalog-level progress notification.
type ProgressEvent struct {
	OwnerID   string               `json:"owner_id,omitempty"` // empty for batch rounds
	Policy    string               `json:"policy"`             // "batch" or "sequential"
	Result    models.CatalogResult `json:"result"`
	Processed int                  `json:"processed"`
	Total     int                  `json:"total"`
	Timestamp time.Time            `json:"timestamp"`
}

// EventBus publishes progress events over an in-process pub/sub channel.
// Subscribers (dashboards, tests) attach via Subscribe and must keep
// consuming and acking; the buffer absorbs bursts, and a publish that a
// stalled subscriber holds past publishTimeout is abandoned rather than
// allowed to block the sync loop.
type EventBus struct {
	pubsub         *gochannel.GoChannel
	publishTimeout time.Duration
}

// NewEventBus creates the bus.
func NewEventBus() *EventBus {
	return &EventBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, newWatermillLogger()),
		publishTimeout: 5 * time.Second,
	}
}

// PublishProgress emits one progress event. Publish failures are logged,
// never propagated, and a stalled delivery is abandoned after a timeout:
// observation must not fail or block the sync.
func (b *EventBus) PublishProgress(ev ProgressEvent) {
	ev.Timestamp = time.Now().UTC()
	payload, err := json.Marshal(ev)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal progress event")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)

	done := make(chan error, 1)
	go func() {
		done <- b.pubsub.Publish(TopicProgress, msg)
	}()
	select {
	case err := <-done:
		if err != nil {
			logging.Error().Err(err).Msg("Failed to publish progress event")
		}
	case <-time.After(b.publishTimeout):
		logging.Warn().
			Str("topic", TopicProgress).
			Msg("Progress event delivery stalled, abandoning publish wait")
	}
}

// Subscribe returns a channel of messages on topic. The caller must Ack
// each message.
func (b *EventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close shuts the bus down, closing all subscriber channels.
func (b *EventBus) Close() error {
	return b.pubsub.Close()
}

// watermillLogger adapts the global zerolog logger to watermill's interface.
type watermillLogger struct {
	fields watermill.LogFields
}

func newWatermillLogger() watermill.LoggerAdapter {
	return &watermillLogger{}
}

func (l *watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	logging.Error().Err(err).Fields(map[string]interface{}(l.fields.Add(fields))).Msg(msg)
}

func (l *watermillLogger) Info(msg string, fields watermill.LogFields) {
	logging.Info().Fields(map[string]interface{}(l.fields.Add(fields))).Msg(msg)
}

func (l *watermillLogger) Debug(msg string, fields watermill.LogFields) {
	logging.Debug().Fields(map[string]interface{}(l.fields.Add(fields))).Msg(msg)
}

func (l *watermillLogger) Trace(msg string, fields watermill.LogFields) {
	logging.Trace().Fields(map[string]interface{}(l.fields.Add(fields))).Msg(msg)
}

func (l *watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillLogger{fields: l.fields.Add(fields)}
}
