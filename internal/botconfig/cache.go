package botconfig

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bbkanego/seerbot/internal/logging"
	"github.com/bbkanego/seerbot/pkg/domain"
	"github.com/bbkanego/seerbot/pkg/observability"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxEntries   = 100000
	DefaultIdleTimeout  = time.Hour
	DefaultBuildTimeout = 30 * time.Second
)

// BuildFunc builds the config of one bot. (*Builder).Build satisfies it.
type BuildFunc func(ctx context.Context, botID string) (*Config, error)

type entry struct {
	botID      string
	cfg        *Config
	lastAccess time.Time
}

// Cache is an LRU of built configs with idle expiry.
//
// Concurrent misses for one bot share a single build, and at most one build of a
// bot runs at any time, across invalidations and timeouts. The build runs under its
// own timeout, detached from the caller that started it, so a caller giving up
// does not fail the others. Failed builds are never cached. A build that finishes
// after the bot was invalidated is returned to its waiters but not stored.
type Cache struct {
	build BuildFunc

	mu    sync.Mutex
	ll    *list.List
	items map[string]*list.Element
	gens  map[string]uint64
	epoch uint64

	// building holds a channel per bot with a build running, closed when it returns.
	building map[string]chan struct{}

	group singleflight.Group

	maxEntries   int
	idleTimeout  time.Duration
	buildTimeout time.Duration
	now          func() time.Time
	metrics      *observability.Metrics
	logger       *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries bounds the number of cached configs.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithIdleTimeout expires configs not accessed for d. Zero disables expiry.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Cache) {
		c.idleTimeout = d
	}
}

// WithBuildTimeout bounds each build.
func WithBuildTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.buildTimeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithMetrics records cache activity.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithLogger configures a logger for the Cache.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache creates a cache over build.
func NewCache(build BuildFunc, opts ...Option) *Cache {
	c := &Cache{
		build:        build,
		ll:           list.New(),
		items:        make(map[string]*list.Element),
		gens:         make(map[string]uint64),
		building:     make(map[string]chan struct{}),
		maxEntries:   DefaultMaxEntries,
		idleTimeout:  DefaultIdleTimeout,
		buildTimeout: DefaultBuildTimeout,
		now:          time.Now,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type stamp struct {
	epoch, gen uint64
}

// Get returns the config of botID, building it on a miss.
func (c *Cache) Get(ctx context.Context, botID string) (*Config, error) {
	if cfg, ok := c.lookup(botID); ok {
		c.metrics.CacheHit()
		return cfg, nil
	}
	c.metrics.CacheMiss()

	ch := c.group.DoChan(botID, func() (any, error) {
		return c.runBuild(ctx, botID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Config), nil
	}
}

type buildResult struct {
	cfg *Config
	err error
}

// runBuild builds botID once no other build of it is running. An invalidation
// starts a new flight while the stale one may still be loading, and a timed out
// build keeps running in the background; both hold the slot until they return.
func (c *Cache) runBuild(ctx context.Context, botID string) (*Config, error) {
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.buildTimeout)
	defer cancel()

	start := c.now()
	release, err := c.acquire(bctx, botID)
	if err != nil {
		return c.finish(ctx, botID, buildResult{err: err}, c.now().Sub(start))
	}
	// The build that held the slot may have stored the config meanwhile.
	if cfg, ok := c.lookup(botID); ok {
		release()
		return cfg, nil
	}
	st := c.stampOf(botID)

	done := make(chan buildResult, 1)
	go func() {
		defer release()
		cfg, err := c.build(bctx, botID)
		done <- buildResult{cfg, err}
	}()

	var res buildResult
	select {
	case res = <-done:
	case <-bctx.Done():
		res.err = bctx.Err()
	}

	cfg, err := c.finish(ctx, botID, res, c.now().Sub(start))
	if err != nil {
		return nil, err
	}
	c.insert(botID, cfg, st)
	return cfg, nil
}

// acquire waits until no build of botID is running and claims the slot.
func (c *Cache) acquire(ctx context.Context, botID string) (func(), error) {
	for {
		c.mu.Lock()
		running, busy := c.building[botID]
		if !busy {
			slot := make(chan struct{})
			c.building[botID] = slot
			c.mu.Unlock()
			return func() {
				c.mu.Lock()
				delete(c.building, botID)
				c.mu.Unlock()
				close(slot)
			}, nil
		}
		c.mu.Unlock()

		select {
		case <-running:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *Cache) finish(ctx context.Context, botID string, res buildResult, took time.Duration) (*Config, error) {
	if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) {
		var ce *domain.ConfigError
		if !errors.As(res.err, &ce) {
			res.err = &domain.ConfigError{BotID: botID, Cause: domain.CauseTimeout, Err: res.err}
		}
	}
	if res.err == nil && res.cfg == nil {
		res.err = &domain.ConfigError{BotID: botID, Cause: domain.CauseStore, Err: errors.New("builder returned no config")}
	}

	if res.err != nil {
		outcome := "error"
		var ce *domain.ConfigError
		if errors.As(res.err, &ce) {
			outcome = string(ce.Cause)
		}
		c.metrics.Build(outcome, took)
		c.logger.WarnContext(ctx, "Bot configuration build failed", "bot_id", botID, "cause", outcome, "err", res.err)
		return nil, res.err
	}
	c.metrics.Build("ok", took)
	c.logger.DebugContext(ctx, "Bot configuration built", "bot_id", botID, "took", took)
	return res.cfg, nil
}

func (c *Cache) stampOf(botID string) stamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return stamp{epoch: c.epoch, gen: c.gens[botID]}
}

func (c *Cache) lookup(botID string) (*Config, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[botID]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	now := c.now()
	if c.expired(e, now) {
		c.removeLocked(el)
		c.metrics.Evicted("idle", 1)
		c.metrics.Entries(c.ll.Len())
		return nil, false
	}
	e.lastAccess = now
	c.ll.MoveToFront(el)
	return e.cfg, true
}

func (c *Cache) insert(botID string, cfg *Config, st stamp) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st.epoch != c.epoch || st.gen != c.gens[botID] {
		c.logger.Debug("Discarding bot configuration invalidated during build", "bot_id", botID)
		return
	}

	now := c.now()
	if el, ok := c.items[botID]; ok {
		e := el.Value.(*entry)
		e.cfg, e.lastAccess = cfg, now
		c.ll.MoveToFront(el)
		return
	}
	c.items[botID] = c.ll.PushFront(&entry{botID: botID, cfg: cfg, lastAccess: now})

	evicted := 0
	for c.ll.Len() > c.maxEntries {
		c.removeLocked(c.ll.Back())
		evicted++
	}
	c.metrics.Evicted("capacity", evicted)
	c.metrics.Entries(c.ll.Len())
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	return c.idleTimeout > 0 && now.Sub(e.lastAccess) > c.idleTimeout
}

func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	c.ll.Remove(el)
	delete(c.items, e.botID)
}

// Invalidate drops the config of botID. Builds already running for it are not stored.
func (c *Cache) Invalidate(botID string) {
	c.mu.Lock()
	removed := 0
	if el, ok := c.items[botID]; ok {
		c.removeLocked(el)
		removed = 1
	}
	c.gens[botID]++
	n := c.ll.Len()
	c.mu.Unlock()

	c.group.Forget(botID)
	c.metrics.Evicted("invalidate", removed)
	c.metrics.Entries(n)
}

// InvalidateAll drops every config. Builds already running are not stored.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	removed := c.ll.Len()
	keys := make([]string, 0, len(c.items)+len(c.gens))
	for k := range c.items {
		keys = append(keys, k)
	}
	for k := range c.gens {
		keys = append(keys, k)
	}
	c.ll.Init()
	c.items = make(map[string]*list.Element)
	c.gens = make(map[string]uint64)
	c.epoch++
	c.mu.Unlock()

	for _, k := range keys {
		c.group.Forget(k)
	}
	c.metrics.Evicted("invalidate", removed)
	c.metrics.Entries(0)
}

// Len returns the number of cached configs, expired ones included until swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Sweep removes idle configs and returns how many it removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	// The back of the list is the least recently accessed entry.
	for el := c.ll.Back(); el != nil; {
		e := el.Value.(*entry)
		if !c.expired(e, now) {
			break
		}
		prev := el.Prev()
		c.removeLocked(el)
		removed++
		el = prev
	}
	c.metrics.Evicted("idle", removed)
	c.metrics.Entries(c.ll.Len())
	return removed
}

// Run sweeps every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug("Swept idle bot configurations", "count", n)
			}
		}
	}
}
