package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lexhelp/precedent-search/internal/core/domain"
	"github.com/lexhelp/precedent-search/internal/core/ports"
	"github.com/lexhelp/precedent-search/internal/infrastructure/resilience"
)

const (
	DefaultTTL            = 300 * time.Second
	DefaultRefreshTimeout = 5 * time.Second
)

// Observer receives cache lifecycle events for metrics.
type Observer interface {
	ExclusionRefreshSucceeded(size int)
	ExclusionRefreshFailed()
	ExclusionServedStale()
}

// ExclusionCache holds the process-wide excluded-document snapshot. Readers
// take a reference to the immutable snapshot under a cheap read lock; only
// the refresh path (store query + snapshot swap) is serialized, through
// singleflight, so N concurrent callers past the TTL issue one store query.
//
// Callers that need a refresh wait for the shared in-flight one. If the
// refresh fails, the last snapshot is served stale with a warning; only the
// very first call, with nothing to fall back to, reports
// ErrExclusionUnavailable.
type ExclusionCache struct {
	store          ports.ExclusionLister
	ttl            time.Duration
	refreshTimeout time.Duration
	executor       *resilience.Executor
	observer       Observer
	now            func() time.Time

	// gen counts invalidations; snapshotGen records which generation the
	// current snapshot was built for. A snapshot is fresh only when the two
	// match, so an Invalidate that lands during an in-flight refresh still
	// forces another refresh: the completing one installs a snapshot tagged
	// with the pre-invalidation generation.
	mu          sync.RWMutex
	snapshot    *domain.ExclusionSnapshot
	gen         uint64
	snapshotGen uint64

	group singleflight.Group
}

type Options struct {
	TTL            time.Duration
	RefreshTimeout time.Duration
	Executor       *resilience.Executor
	Observer       Observer
	Clock          func() time.Time
}

func New(store ports.ExclusionLister, ttl time.Duration) *ExclusionCache {
	return NewWithOptions(store, Options{TTL: ttl})
}

func NewWithOptions(store ports.ExclusionLister, options Options) *ExclusionCache {
	ttl := options.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	refreshTimeout := options.RefreshTimeout
	if refreshTimeout <= 0 {
		refreshTimeout = DefaultRefreshTimeout
	}
	clock := options.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ExclusionCache{
		store:          store,
		ttl:            ttl,
		refreshTimeout: refreshTimeout,
		executor:       options.Executor,
		observer:       options.Observer,
		now:            clock,
	}
}

func (c *ExclusionCache) ExcludedIDs(ctx context.Context) (*domain.ExclusionSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if snap := c.fresh(); snap != nil {
		return snap, nil
	}

	v, err, _ := c.group.Do("exclusions", func() (any, error) {
		// A refresh that completed while this caller queued is good enough.
		if snap := c.fresh(); snap != nil {
			return snap, nil
		}
		return c.refresh()
	})
	if err == nil {
		return v.(*domain.ExclusionSnapshot), nil
	}

	c.mu.RLock()
	last := c.snapshot
	c.mu.RUnlock()
	if last != nil {
		slog.Warn("exclusion_refresh_failed_serving_stale",
			"error", err,
			"snapshot_age_s", last.Age(c.now()).Seconds(),
			"snapshot_size", last.Size(),
		)
		if c.observer != nil {
			c.observer.ExclusionServedStale()
		}
		return last, nil
	}
	return nil, domain.WrapError(domain.ErrExclusionUnavailable, "refresh exclusion set", err)
}

// Invalidate forces the next ExcludedIDs call to refresh regardless of age.
// It also marks any refresh already in flight as outdated: the snapshot that
// refresh installs will not be considered fresh.
func (c *ExclusionCache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
}

func (c *ExclusionCache) fresh() *domain.ExclusionSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil || c.snapshotGen != c.gen {
		return nil
	}
	if c.snapshot.Age(c.now()) > c.ttl {
		return nil
	}
	return c.snapshot
}

// refresh runs on a detached context with its own timeout: a cancelled
// triggering request must not abort a refresh that other readers will share.
func (c *ExclusionCache) refresh() (*domain.ExclusionSnapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
	defer cancel()

	// Capture the generation before the store query. Invalidations that
	// arrive while the query runs bump gen past startGen, so the snapshot
	// installed below immediately reads as not fresh.
	c.mu.RLock()
	startGen := c.gen
	c.mu.RUnlock()

	var ids []string
	call := func(callCtx context.Context) error {
		var err error
		ids, err = c.store.ListExcludedDocumentIDs(callCtx)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "exclusions.refresh", call, classifyRefreshError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		if c.observer != nil {
			c.observer.ExclusionRefreshFailed()
		}
		return nil, fmt.Errorf("list excluded documents: %w", err)
	}

	snap := domain.NewExclusionSnapshot(ids, c.now())
	c.mu.Lock()
	c.snapshot = snap
	c.snapshotGen = startGen
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.ExclusionRefreshSucceeded(snap.Size())
	}
	return snap, nil
}

func classifyRefreshError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}
