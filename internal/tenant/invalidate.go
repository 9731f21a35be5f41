package tenant

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultInvalidationChannel is the Redis channel the control plane
// publishes changed hostnames on.
const DefaultInvalidationChannel = "bv:tenant-invalidations"

// InvalidationSubscriber listens for hostnames published by the control
// plane and drops their cached resolutions, so tenant edits propagate
// faster than the cache TTL.
type InvalidationSubscriber struct {
	store   *CachedStore
	client  *redis.Client
	channel string
	logger  *slog.Logger

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

// NewInvalidationSubscriber creates a subscriber on the given channel.
// An empty channel name selects DefaultInvalidationChannel.
func NewInvalidationSubscriber(store *CachedStore, client *redis.Client, channel string, logger *slog.Logger) *InvalidationSubscriber {
	if channel == "" {
		channel = DefaultInvalidationChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InvalidationSubscriber{
		store:   store,
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// Start begins consuming invalidations in the background. Calling Start
// twice without Close is a no-op.
func (s *InvalidationSubscriber) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	sub := s.client.Subscribe(ctx, s.channel)
	go s.run(ctx, sub)

	s.logger.Info("tenant invalidation subscriber started", "channel", s.channel)
}

func (s *InvalidationSubscriber) run(ctx context.Context, sub *redis.PubSub) {
	defer close(s.done)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case msg, ok := <-ch:
			if !ok {
				s.logger.Warn("tenant invalidation channel closed")
				return
			}
			host := NormalizeHost(msg.Payload)
			if host == "" {
				continue
			}
			if err := s.store.Invalidate(ctx, host); err != nil {
				s.logger.Error("tenant invalidation failed", "host", host, "error", err)
				continue
			}
			s.logger.Info("tenant cache invalidated", "host", host)
		}
	}
}

// Name implements server.Resource.
func (s *InvalidationSubscriber) Name() string {
	return "tenant-invalidation-subscriber"
}

// Close implements server.Resource. It stops the run loop and waits for
// it to drain or for the context to expire.
func (s *InvalidationSubscriber) Close(ctx context.Context) error {
	s.mu.Lock()
	stopCh, done := s.stopCh, s.done
	s.stopCh, s.done = nil, nil
	s.mu.Unlock()

	if stopCh == nil {
		return nil
	}
	close(stopCh)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
