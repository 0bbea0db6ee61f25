package chain

import (
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eddiefleurent/options_calculator/internal/models"
)

// DefaultTTL is how long a pushed chain is considered fresh.
const DefaultTTL = 5 * time.Minute

const strikeTolerance = 1e-9

// Receipt acknowledges a stored chain.
type Receipt struct {
	ReceivedAt       time.Time `json:"received_at"`
	Status           string    `json:"status"`
	Ticker           string    `json:"ticker"`
	ContractsCount   int       `json:"contracts_count"`
	ExpirationsCount int       `json:"expirations_count"`
}

// Status summarizes the store.
type Status struct {
	LastReceivedAt *time.Time `json:"last_received_at,omitempty"`
	CachedTickers  []string   `json:"cached_tickers"`
	CacheSize      int        `json:"cache_size"`
	// Connected reports whether any chain arrived within the TTL.
	Connected bool `json:"connected"`
}

// Store keeps the latest chain per ticker. Tickers are case-insensitive.
// Store is safe for concurrent use.
type Store struct {
	chains map[string]Chain
	now    func() time.Time
	mu     sync.RWMutex
	ttl    time.Duration
}

// NewStore creates an empty store; ttl <= 0 uses DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		chains: make(map[string]Chain),
		now:    time.Now,
		ttl:    ttl,
	}
}

// Receive normalizes and stores a pushed chain, replacing any previous
// snapshot for the ticker.
func (s *Store) Receive(raw RawChain) (Receipt, error) {
	c, err := raw.Normalize(s.now())
	if err != nil {
		return Receipt{}, err
	}
	return s.Put(c), nil
}

// Put stores an already normalized chain.
func (s *Store) Put(c Chain) Receipt {
	c.Ticker = strings.ToUpper(c.Ticker)
	c.Stale = false
	if c.ReceivedAt.IsZero() {
		c.ReceivedAt = s.now()
	}

	s.mu.Lock()
	s.chains[c.Ticker] = c
	s.mu.Unlock()

	return Receipt{
		Status:           "success",
		Ticker:           c.Ticker,
		ContractsCount:   len(c.Options),
		ExpirationsCount: len(c.Expirations),
		ReceivedAt:       c.ReceivedAt,
	}
}

// Get returns a copy of the chain for ticker, flagged stale past the TTL.
func (s *Store) Get(ticker string) (Chain, bool) {
	s.mu.RLock()
	c, ok := s.chains[strings.ToUpper(ticker)]
	s.mu.RUnlock()
	if !ok {
		return Chain{}, false
	}

	c.Expirations = slices.Clone(c.Expirations)
	c.Options = slices.Clone(c.Options)
	c.Stale = s.now().Sub(c.ReceivedAt) > s.ttl
	return c, true
}

// CurrentPrice returns the underlying price of the stored chain.
func (s *Store) CurrentPrice(ticker string) (float64, bool) {
	c, ok := s.Get(ticker)
	if !ok {
		return 0, false
	}
	return c.UnderlyingPrice, true
}

// Expirations lists the chain's expirations; empty if the ticker is unknown.
func (s *Store) Expirations(ticker string) []string {
	c, ok := s.Get(ticker)
	if !ok {
		return []string{}
	}
	return c.Expirations
}

// Strikes lists the distinct strikes for one expiration in ascending order.
func (s *Store) Strikes(ticker, expiration string) []float64 {
	strikes := []float64{}
	c, ok := s.Get(ticker)
	if !ok {
		return strikes
	}

	seen := make(map[float64]struct{})
	for _, opt := range c.Options {
		if opt.Expiration != expiration {
			continue
		}
		if _, dup := seen[opt.Strike]; dup {
			continue
		}
		seen[opt.Strike] = struct{}{}
		strikes = append(strikes, opt.Strike)
	}
	sort.Float64s(strikes)
	return strikes
}

// Quote finds one contract.
func (s *Store) Quote(ticker, expiration string, strike float64, optType models.OptionType) (Contract, bool) {
	c, ok := s.Get(ticker)
	if !ok {
		return Contract{}, false
	}
	for _, opt := range c.Options {
		if opt.Expiration == expiration &&
			opt.OptionType == optType &&
			math.Abs(opt.Strike-strike) < strikeTolerance {
			return opt, true
		}
	}
	return Contract{}, false
}

// Status reports cached tickers and connection freshness.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		CachedTickers: make([]string, 0, len(s.chains)),
		CacheSize:     len(s.chains),
	}
	var last time.Time
	for ticker, c := range s.chains {
		st.CachedTickers = append(st.CachedTickers, ticker)
		if c.ReceivedAt.After(last) {
			last = c.ReceivedAt
		}
	}
	sort.Strings(st.CachedTickers)
	if !last.IsZero() {
		st.LastReceivedAt = &last
		st.Connected = s.now().Sub(last) <= s.ttl
	}
	return st
}
