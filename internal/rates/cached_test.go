package rates

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/eddiefleurent/options_calculator/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Rate(ctx context.Context) (RateInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(RateInfo), args.Error(1)
}

func testCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:          time.Hour,
		FallbackRate: 0.045,
		CircuitBreaker: CircuitBreakerSettings{
			MaxRequests:  1,
			Interval:     time.Minute,
			Timeout:      time.Minute,
			MinRequests:  100,
			FailureRatio: 0.6,
		},
		Retry: retry.Config{
			MaxRetries:     0,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
			Timeout:        time.Second,
		},
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(src Provider, cfg CacheConfig) (*CachedProvider, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 7, 5, 14, 0, 0, 0, time.UTC)}
	c := NewCachedProvider(src, cfg, quietLogger())
	c.now = clock.Now
	return c, clock
}

func TestCachedProvider_CachesWithinTTL(t *testing.T) {
	src := &mockProvider{}
	src.On("Rate", mock.Anything).Return(RateInfo{Rate: 0.0525, Source: SourceFRED}, nil).Once()

	c, clock := newTestCache(src, testCacheConfig())

	first, err := c.Rate(context.Background())
	require.NoError(t, err)
	clock.Advance(59 * time.Minute)
	second, err := c.Rate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 0.0525, second.Rate)
	src.AssertNumberOfCalls(t, "Rate", 1)
}

func TestCachedProvider_RefetchesAfterTTL(t *testing.T) {
	src := &mockProvider{}
	src.On("Rate", mock.Anything).Return(RateInfo{Rate: 0.0525, Source: SourceFRED}, nil).Once()
	src.On("Rate", mock.Anything).Return(RateInfo{Rate: 0.0510, Source: SourceFRED}, nil).Once()

	c, clock := newTestCache(src, testCacheConfig())

	_, err := c.Rate(context.Background())
	require.NoError(t, err)
	clock.Advance(time.Hour)
	info, err := c.Rate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0.0510, info.Rate)
	src.AssertExpectations(t)
}

func TestCachedProvider_ServesStaleOnFailure(t *testing.T) {
	src := &mockProvider{}
	src.On("Rate", mock.Anything).Return(RateInfo{Rate: 0.0525, Source: SourceFRED}, nil).Once()
	src.On("Rate", mock.Anything).Return(RateInfo{}, errors.New("503 service unavailable")).Once()

	c, clock := newTestCache(src, testCacheConfig())

	_, err := c.Rate(context.Background())
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)
	info, err := c.Rate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0.0525, info.Rate)
	assert.True(t, info.Stale)
	src.AssertExpectations(t)
}

func TestCachedProvider_FallbackWhenNeverFetched(t *testing.T) {
	src := &mockProvider{}
	src.On("Rate", mock.Anything).Return(RateInfo{}, ErrNoObservation)

	c, _ := newTestCache(src, testCacheConfig())

	info, err := c.Rate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.045, info.Rate)
	assert.InDelta(t, 4.5, info.RatePercent, 1e-12)
	assert.Equal(t, SourceFallback, info.Source)
}

func TestCachedProvider_RetriesTransientErrors(t *testing.T) {
	src := &mockProvider{}
	src.On("Rate", mock.Anything).Return(RateInfo{}, errors.New("dial tcp: connection refused")).Twice()
	src.On("Rate", mock.Anything).Return(RateInfo{Rate: 0.05, Source: SourceFRED}, nil).Once()

	cfg := testCacheConfig()
	cfg.Retry.MaxRetries = 3
	c, _ := newTestCache(src, cfg)

	info, err := c.Rate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.05, info.Rate)
	assert.False(t, info.Stale)
	src.AssertExpectations(t)
}

func TestCachedProvider_BreakerOpensAfterFailures(t *testing.T) {
	src := &mockProvider{}
	src.On("Rate", mock.Anything).Return(RateInfo{}, errors.New("upstream exploded"))

	cfg := testCacheConfig()
	cfg.CircuitBreaker.MinRequests = 2
	c, _ := newTestCache(src, cfg)

	for i := 0; i < 5; i++ {
		info, err := c.Rate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, SourceFallback, info.Source)
	}

	// The breaker trips after two failures and short-circuits the rest.
	src.AssertNumberOfCalls(t, "Rate", 2)
}

func TestCachedProvider_Invalidate(t *testing.T) {
	src := &mockProvider{}
	src.On("Rate", mock.Anything).Return(RateInfo{Rate: 0.05, Source: SourceFRED}, nil).Twice()

	c, _ := newTestCache(src, testCacheConfig())

	_, err := c.Rate(context.Background())
	require.NoError(t, err)
	c.Invalidate()
	_, err = c.Rate(context.Background())
	require.NoError(t, err)

	src.AssertNumberOfCalls(t, "Rate", 2)
}

func TestCachedProvider_CanceledContext(t *testing.T) {
	src := &mockProvider{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := newTestCache(src, testCacheConfig())
	_, err := c.Rate(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	src.AssertNotCalled(t, "Rate", mock.Anything)
}

type blockingProvider struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	mu      sync.Mutex
	calls   int
}

func (b *blockingProvider) Rate(ctx context.Context) (RateInfo, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return RateInfo{Rate: 0.052, Source: SourceFRED}, nil
	case <-ctx.Done():
		return RateInfo{}, ctx.Err()
	}
}

func TestCachedProvider_SharedFetchSurvivesCallerCancel(t *testing.T) {
	src := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	c, _ := newTestCache(src, testCacheConfig())

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Rate(ctxA)
		errA <- err
	}()
	<-src.started

	type result struct {
		info RateInfo
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		info, err := c.Rate(context.Background())
		resB <- result{info, err}
	}()

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(src.release)
	got := <-resB
	require.NoError(t, got.err)
	assert.Equal(t, 0.052, got.info.Rate)
	assert.Equal(t, SourceFRED, got.info.Source)
	assert.False(t, got.info.Stale)

	src.mu.Lock()
	assert.Equal(t, 1, src.calls)
	src.mu.Unlock()
	assert.Equal(t, uint32(0), c.breaker.Counts().TotalFailures)
}
