package services

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/youthhire/safety-engine/pkg/models"
	"github.com/youthhire/safety-engine/pkg/repositories"
	"github.com/youthhire/safety-engine/pkg/retry"
)

// PolicyUpdatedChannel is the Redis channel on which new ACTIVE policy
// versions are announced. The payload is the version number.
const PolicyUpdatedChannel = "age_policy:updated"

// PolicyCache holds the ACTIVE age policy in memory. Readers get one
// immutable snapshot per call; a new version replaces the pointer, it never
// mutates the snapshot readers already hold.
//
// With a Redis client, instances announce new versions to each other so a
// policy change on one instance is picked up by all of them at once.
// RunResync re-reads the store on an interval, which bounds staleness when an
// announcement is lost or Redis is not configured.
type PolicyCache struct {
	repo    repositories.AgePolicyRepository
	rdb     *redis.Client
	current atomic.Pointer[models.AgePolicy]
	logger  *zap.Logger
}

// NewPolicyCache creates a cache backed by repo. rdb may be nil.
func NewPolicyCache(repo repositories.AgePolicyRepository, rdb *redis.Client, logger *zap.Logger) *PolicyCache {
	return &PolicyCache{
		repo:   repo,
		rdb:    rdb,
		logger: logger.Named("policy-cache"),
	}
}

// Get returns the cached ACTIVE policy, loading it from the repository on
// first use. Fails with ErrNoActivePolicy when none exists.
func (c *PolicyCache) Get(ctx context.Context) (*models.AgePolicy, error) {
	if p := c.current.Load(); p != nil {
		return p, nil
	}
	return c.Refresh(ctx)
}

// Refresh re-reads the ACTIVE policy from the repository.
func (c *PolicyCache) Refresh(ctx context.Context) (*models.AgePolicy, error) {
	p, err := c.repo.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(p)
	return c.current.Load(), nil
}

// Set installs p unless a newer version is already cached. Versions only
// move forward, so a late refresh cannot resurrect an archived policy.
func (c *PolicyCache) Set(p *models.AgePolicy) {
	if p == nil {
		return
	}
	for {
		old := c.current.Load()
		if old != nil && old.Version >= p.Version {
			return
		}
		if c.current.CompareAndSwap(old, p) {
			return
		}
	}
}

// CachedVersion returns the cached version number, or 0 when empty.
func (c *PolicyCache) CachedVersion() int {
	if p := c.current.Load(); p != nil {
		return p.Version
	}
	return 0
}

// Publish announces a new ACTIVE version to other instances.
// Failures are logged; peers still converge on their next resync tick.
func (c *PolicyCache) Publish(ctx context.Context, version int) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Publish(ctx, PolicyUpdatedChannel, strconv.Itoa(version)).Err(); err != nil {
		c.logger.Warn("Failed to publish policy update",
			zap.Int("version", version),
			zap.Error(err))
	}
}

// RunResync starts a background loop that re-reads the ACTIVE policy every
// interval until ctx is cancelled.
func (c *PolicyCache) RunResync(ctx context.Context, interval time.Duration) {
	go func() {
		c.logger.Info("Policy resync started", zap.Duration("interval", interval))

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Policy resync stopped")
				return
			case <-ticker.C:
				c.resync(ctx)
			}
		}
	}()
}

// Listen refreshes the cache whenever another instance announces a newer
// version, and once after every (re)subscription since announcements sent
// while disconnected are lost. It blocks until ctx is cancelled and returns
// immediately when no Redis client is configured.
func (c *PolicyCache) Listen(ctx context.Context) {
	if c.rdb == nil {
		return
	}

	pubsub := c.rdb.Subscribe(ctx, PolicyUpdatedChannel)
	defer pubsub.Close()

	ch := pubsub.ChannelWithSubscriptions()
	c.logger.Info("Listening for policy updates", zap.String("channel", PolicyUpdatedChannel))

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				c.logger.Info("Policy update channel closed")
				return
			}
			switch m := msg.(type) {
			case *redis.Subscription:
				if m.Kind == "subscribe" {
					c.resync(ctx)
				}
			case *redis.Message:
				c.handleUpdate(ctx, m.Payload)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *PolicyCache) handleUpdate(ctx context.Context, payload string) {
	version, err := strconv.Atoi(payload)
	if err != nil {
		c.logger.Warn("Ignoring malformed policy update", zap.String("payload", payload))
		return
	}
	if version <= c.CachedVersion() {
		return
	}
	c.resync(ctx)
}

// resync re-reads the ACTIVE policy, retrying transient store errors.
// Set keeps versions moving forward, so a slow read cannot roll the cache back.
func (c *PolicyCache) resync(ctx context.Context) {
	before := c.CachedVersion()
	var p *models.AgePolicy
	err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		var refreshErr error
		p, refreshErr = c.Refresh(ctx)
		return refreshErr
	})
	if err != nil {
		c.logger.Error("Failed to refresh age policy",
			zap.Int("cached_version", before),
			zap.Error(err))
		return
	}
	if p.Version != before {
		c.logger.Info("Age policy refreshed",
			zap.Int("version", p.Version),
			zap.Int("previous_version", before))
	}
}
