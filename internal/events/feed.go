package events

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// FeedPublisher pushes a serialized event onto a named channel. Satisfied
// by the Redis client wrapper; kept narrow so tests can fake it.
type FeedPublisher interface {
	PublishFeed(ctx context.Context, channel string, payload []byte) error
}

// feedDispatcher decorates an inner dispatcher and mirrors every event
// onto the per-organization realtime feed channel as JSON. Front-end
// clients subscribe to feed:{org} for live inbox updates.
type feedDispatcher struct {
	inner  Dispatcher
	feed   FeedPublisher
	logger *zap.Logger
}

// NewFeedDispatcher wraps inner with realtime feed publication.
func NewFeedDispatcher(inner Dispatcher, feed FeedPublisher, logger *zap.Logger) Dispatcher {
	return &feedDispatcher{inner: inner, feed: feed, logger: logger}
}

// FeedChannel names the realtime channel for an organization.
func FeedChannel(organizationID string) string {
	return "feed:" + organizationID
}

// Publish delivers to local subscribers first, then mirrors onto the feed.
// Feed failures are logged, not surfaced: realtime delivery is best effort
// and must not fail the originating request.
func (d *feedDispatcher) Publish(ctx context.Context, event Event) error {
	if err := d.inner.Publish(ctx, event); err != nil {
		return err
	}
	if d.feed == nil || event.OrganizationID == "" {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		d.logger.Warn("marshal feed event", zap.Error(err), zap.String("event_type", string(event.Type)))
		return nil
	}
	if err := d.feed.PublishFeed(ctx, FeedChannel(event.OrganizationID), payload); err != nil {
		d.logger.Warn("publish feed event", zap.Error(err), zap.String("event_type", string(event.Type)))
	}
	return nil
}

// Subscribe registers a local handler on the inner dispatcher.
func (d *feedDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.inner.Subscribe(eventType, handler)
}
