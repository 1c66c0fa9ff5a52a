// Memberhub - Member Portal, Content and Chat Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/memberhub

// Package analytics carries frontend tracking events from the track endpoint
// to the document store.
//
// The Tracker publishes enriched events onto an in-process Watermill
// gochannel topic. The Consumer runs a Watermill router that decodes each
// message, persists it and updates Prometheus counters. Messages that still
// fail after retries are dropped and counted rather than redelivered.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/memberhub/internal/config"
	"github.com/tomtom215/memberhub/internal/logging"
	"github.com/tomtom215/memberhub/internal/metrics"
	"github.com/tomtom215/memberhub/internal/models"
	"github.com/tomtom215/memberhub/internal/store"
)

// ErrDisabled is returned by Track when analytics is turned off.
var ErrDisabled = errors.New("analytics is disabled")

const (
	metaRequestID = "request_id"
	metaName      = "name"
)

// Collection stores analytics events.
type Collection = store.Collection[models.AnalyticsEvent, *models.AnalyticsEvent]

// NewCollection declares analytics events indexed by name.
func NewCollection(s *store.Store) *Collection {
	return store.NewCollection[models.AnalyticsEvent](s, "analytics_events",
		store.Index[models.AnalyticsEvent]{
			Name: "name",
			Key:  func(e *models.AnalyticsEvent) string { return e.Name },
		},
	)
}

// Bus is the in-process pub/sub shared by the tracker and the consumer.
type Bus struct {
	pubsub *gochannel.GoChannel
	topic  string
	logger watermill.LoggerAdapter
}

// NewBus creates the gochannel pub/sub for the configured topic.
func NewBus(cfg config.AnalyticsConfig) *Bus {
	topic := cfg.Topic
	if topic == "" {
		topic = "analytics.events"
	}
	logger := watermill.NewSlogLogger(logging.NewComponentSlogLogger("analytics"))
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.BufferSize,
		}, logger),
		topic:  topic,
		logger: logger,
	}
}

// Topic returns the topic events are published on.
func (b *Bus) Topic() string { return b.topic }

// Close shuts the pub/sub down. Pending messages are discarded.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Enrichment is request context attached to a tracked event.
type Enrichment struct {
	MemberID  string
	RequestID string
	UserAgent string
}

// Tracker publishes tracked events.
type Tracker struct {
	bus     *Bus
	enabled bool
	now     func() time.Time
}

// NewTracker creates a tracker publishing on bus.
func NewTracker(bus *Bus, enabled bool) *Tracker {
	return &Tracker{bus: bus, enabled: enabled, now: time.Now}
}

// Track enriches req and publishes it. The returned event carries the
// generated ID; persistence happens asynchronously.
func (t *Tracker) Track(ctx context.Context, req models.TrackRequest, e Enrichment) (*models.AnalyticsEvent, error) {
	if !t.enabled {
		return nil, ErrDisabled
	}

	event := &models.AnalyticsEvent{
		Base:       models.NewBase(t.now()),
		Name:       strings.TrimSpace(req.Name),
		Path:       req.Path,
		Properties: req.Properties,
		MemberID:   e.MemberID,
		RequestID:  e.RequestID,
		UserAgent:  truncate(e.UserAgent, 512),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		metrics.AnalyticsEventsDropped.WithLabelValues("publish").Inc()
		return nil, fmt.Errorf("encode analytics event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(metaName, event.Name)
	if e.RequestID != "" {
		msg.Metadata.Set(metaRequestID, e.RequestID)
	}

	if err := t.bus.pubsub.Publish(t.bus.topic, msg); err != nil {
		metrics.AnalyticsEventsDropped.WithLabelValues("publish").Inc()
		return nil, fmt.Errorf("publish analytics event: %w", err)
	}
	return event, nil
}

// ConsumerStats holds runtime counters for the consumer.
type ConsumerStats struct {
	Received  int64
	Persisted int64
	Dropped   int64
}

// Consumer persists events from the bus.
type Consumer struct {
	bus    *Bus
	events *Collection

	mu          sync.Mutex
	next        *message.Router
	running     chan struct{}
	runningOnce sync.Once
	runs        atomic.Int64

	received  atomic.Int64
	persisted atomic.Int64
	dropped   atomic.Int64
}

// NewConsumer builds the Watermill router for the analytics topic.
func NewConsumer(bus *Bus, events *Collection) (*Consumer, error) {
	c := &Consumer{bus: bus, events: events, running: make(chan struct{})}
	router, err := c.newRouter()
	if err != nil {
		return nil, err
	}
	c.next = router
	return c, nil
}

// newRouter builds a router for one run. A Watermill router can only run
// once, so every Serve gets a fresh one.
//
// Middleware runs outer to inner: drop-on-failure, panic recovery, retry.
func (c *Consumer) newRouter() (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, c.bus.logger)
	if err != nil {
		return nil, fmt.Errorf("create analytics router: %w", err)
	}

	router.AddMiddleware(
		c.dropOnFailure,
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 50 * time.Millisecond,
			MaxInterval:     time.Second,
			Multiplier:      2,
			Logger:          c.bus.logger,
		}.Middleware,
	)
	router.AddConsumerHandler("analytics-store", c.bus.topic, busSubscriber{c.bus.pubsub}, c.handle)
	return router, nil
}

func (c *Consumer) takeRouter() (*message.Router, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if router := c.next; router != nil {
		c.next = nil
		return router, nil
	}
	return c.newRouter()
}

// busSubscriber keeps a stopping router from closing the shared bus. The
// bus is closed by Bus.Close.
type busSubscriber struct {
	message.Subscriber
}

func (busSubscriber) Close() error { return nil }

func (c *Consumer) handle(msg *message.Message) error {
	c.received.Add(1)

	var event models.AnalyticsEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		// Not retryable; ack and count.
		c.dropped.Add(1)
		metrics.AnalyticsEventsDropped.WithLabelValues("decode").Inc()
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Discarding undecodable analytics event")
		return nil
	}

	err := c.events.Insert(msg.Context(), &event)
	if errors.Is(err, store.ErrConflict) {
		// Redelivery of an event that was already stored.
		return nil
	}
	if err != nil {
		return fmt.Errorf("persist analytics event %s: %w", event.ID, err)
	}

	c.persisted.Add(1)
	metrics.AnalyticsEventsTracked.WithLabelValues(event.Name).Inc()
	return nil
}

func (c *Consumer) dropOnFailure(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err != nil {
			c.dropped.Add(1)
			metrics.AnalyticsEventsDropped.WithLabelValues("persist").Inc()
			logging.Error().
				Err(err).
				Str("message_uuid", msg.UUID).
				Str(metaRequestID, msg.Metadata.Get(metaRequestID)).
				Msg("Dropping analytics event after retries")
			return nil, nil
		}
		return out, nil
	}
}

// Running is closed once the first router has subscribed and is consuming.
func (c *Consumer) Running() chan struct{} {
	return c.running
}

// Serve implements suture.Service. It blocks until ctx is cancelled and can
// be called again after it returns.
func (c *Consumer) Serve(ctx context.Context) error {
	router, err := c.takeRouter()
	if err != nil {
		return err
	}

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-router.Running():
			c.runs.Add(1)
			c.runningOnce.Do(func() { close(c.running) })
		case <-stopped:
		}
	}()

	logging.Info().Str("topic", c.bus.topic).Msg("Analytics consumer started")
	err = router.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("analytics router: %w", err)
	}
	logging.Info().Msg("Analytics consumer stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (c *Consumer) String() string { return "analytics-consumer" }

// Stats returns a snapshot of consumer counters.
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Received:  c.received.Load(),
		Persisted: c.persisted.Load(),
		Dropped:   c.dropped.Load(),
	}
}

// Summary counts stored events by name, optionally limited to events created
// at or after since.
func Summary(ctx context.Context, events *Collection, since time.Time) (*models.AnalyticsSummary, error) {
	var filter func(*models.AnalyticsEvent) bool
	if !since.IsZero() {
		filter = func(e *models.AnalyticsEvent) bool { return !e.CreatedAt.Before(since) }
	}
	list, total, err := events.List(ctx, filter, store.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list analytics events: %w", err)
	}

	summary := &models.AnalyticsSummary{Total: total, ByName: make(map[string]int)}
	for _, e := range list {
		summary.ByName[e.Name]++
	}
	return summary, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
