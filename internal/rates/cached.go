package rates

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eddiefleurent/options_calculator/internal/retry"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
)

// CircuitBreakerSettings configures circuit breaker behavior
type CircuitBreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// DefaultCircuitBreakerSettings mirrors the settings used for upstream APIs.
var DefaultCircuitBreakerSettings = CircuitBreakerSettings{
	MaxRequests:  3,                // Allow 3 requests when half-open
	Interval:     60 * time.Second, // Reset counts every minute
	Timeout:      30 * time.Second, // Open circuit for 30 seconds
	MinRequests:  5,                // Minimum requests before tripping
	FailureRatio: 0.6,              // Trip if 60% failure rate
}

// CacheConfig configures a CachedProvider.
type CacheConfig struct {
	TTL            time.Duration
	FallbackRate   float64
	CircuitBreaker CircuitBreakerSettings
	Retry          retry.Config
}

// CachedProvider caches a source rate for TTL. Concurrent misses share one
// fetch. When the source fails it serves the last known rate marked stale,
// or the fallback rate if nothing was ever fetched.
type CachedProvider struct {
	source   Provider
	breaker  *gobreaker.CircuitBreaker
	retry    *retry.Client
	logger   *logrus.Logger
	now      func() time.Time
	group    singleflight.Group
	mu       sync.RWMutex
	cached   *RateInfo
	cachedAt time.Time
	ttl      time.Duration
	fallback float64
}

var _ Provider = (*CachedProvider)(nil)

// NewCachedProvider wraps source with caching, circuit breaking and retry.
func NewCachedProvider(source Provider, cfg CacheConfig, logger *logrus.Logger) *CachedProvider {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}

	settings := cfg.CircuitBreaker
	if settings == (CircuitBreakerSettings{}) {
		settings = DefaultCircuitBreakerSettings
	}
	gbSettings := gobreaker.Settings{
		Name:        "RateCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	return &CachedProvider{
		source:   source,
		breaker:  gobreaker.NewCircuitBreaker(gbSettings),
		retry:    retry.NewClient(logger, cfg.Retry),
		logger:   logger,
		now:      time.Now,
		ttl:      cfg.TTL,
		fallback: cfg.FallbackRate,
	}
}

// execCircuitBreaker is a generic helper for calls guarded by the breaker
func execCircuitBreaker[T any](breaker *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", res)
	}
	return v, nil
}

// Rate implements Provider. It only returns an error if ctx is done.
// The shared fetch is detached from the caller that started it and bounded
// by the retry timeout, so one caller leaving does not fail the others.
func (c *CachedProvider) Rate(ctx context.Context) (RateInfo, error) {
	if info, ok := c.fresh(); ok {
		return info, nil
	}
	if err := ctx.Err(); err != nil {
		return RateInfo{}, err
	}

	ch := c.group.DoChan("rate", func() (interface{}, error) {
		fetchCtx := context.WithoutCancel(ctx)
		info, err := retry.Do(fetchCtx, c.retry, "fetch risk-free rate", func(ctx context.Context) (RateInfo, error) {
			return execCircuitBreaker(c.breaker, func() (RateInfo, error) {
				return c.source.Rate(ctx)
			})
		})
		if err != nil {
			return nil, err
		}
		c.store(info)
		return info, nil
	})

	var err error
	select {
	case <-ctx.Done():
		return RateInfo{}, ctx.Err()
	case res := <-ch:
		err = res.Err
		if err == nil {
			if info, ok := res.Val.(RateInfo); ok {
				return info, nil
			}
			err = fmt.Errorf("unexpected rate result type %T", res.Val)
		}
	}

	if ctx.Err() != nil {
		return RateInfo{}, ctx.Err()
	}

	if stale, ok := c.last(); ok {
		c.logger.WithError(err).WithField("rate", stale.Rate).Warn("Rate source unavailable, serving stale rate")
		stale.Stale = true
		return stale, nil
	}

	c.logger.WithError(err).WithField("rate", c.fallback).Warn("Rate source unavailable, using fallback rate")
	return newRateInfo(c.fallback, SourceFallback, c.now()), nil
}

// Invalidate drops the cached rate so the next call refetches.
func (c *CachedProvider) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
	c.cachedAt = time.Time{}
}

func (c *CachedProvider) fresh() (RateInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cached == nil || c.now().Sub(c.cachedAt) >= c.ttl {
		return RateInfo{}, false
	}
	return *c.cached, true
}

func (c *CachedProvider) last() (RateInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cached == nil {
		return RateInfo{}, false
	}
	return *c.cached, true
}

func (c *CachedProvider) store(info RateInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = &info
	c.cachedAt = c.now()
}
