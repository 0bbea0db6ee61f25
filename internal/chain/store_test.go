package chain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/eddiefleurent/options_calculator/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extensionPayload = `{
	"symbol": "spy",
	"price": 452.3,
	"chain": [
		{"strike": 455, "expiry": "2024-07-19", "type": "CALL", "bid": 3.1, "ask": 3.3, "price": 3.2, "oi": 1200, "iv": 0.14, "delta": 0.42},
		{"strike": 450, "expiration": "2024-07-19", "option_type": "put", "bid": 2.4, "ask": 2.6, "last": 2.5, "open_interest": 900, "implied_volatility": 0.15},
		{"strike": 450, "expiration": "2024-07-12", "bid": 4.0, "ask": 4.2},
		{"strike": 445, "expiration": "2024-07-19", "option_type": "put", "bid": 1.1, "ask": 1.2}
	]
}`

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	now := time.Date(2024, 7, 5, 15, 0, 0, 0, time.UTC)
	s := NewStore(5 * time.Minute)
	s.now = func() time.Time { return now }
	return s, &now
}

func receivePayload(t *testing.T, s *Store) Receipt {
	t.Helper()
	var raw RawChain
	require.NoError(t, json.Unmarshal([]byte(extensionPayload), &raw))
	receipt, err := s.Receive(raw)
	require.NoError(t, err)
	return receipt
}

func TestStore_ReceiveNormalizesAlternateKeys(t *testing.T) {
	s, _ := newTestStore(t)
	receipt := receivePayload(t, s)

	assert.Equal(t, "success", receipt.Status)
	assert.Equal(t, "SPY", receipt.Ticker)
	assert.Equal(t, 4, receipt.ContractsCount)
	assert.Equal(t, 2, receipt.ExpirationsCount)

	c, ok := s.Get("Spy")
	require.True(t, ok)
	assert.Equal(t, 452.3, c.UnderlyingPrice)
	assert.Equal(t, []string{"2024-07-12", "2024-07-19"}, c.Expirations)
	assert.False(t, c.Stale)

	first := c.Options[0]
	assert.Equal(t, models.Call, first.OptionType)
	assert.Equal(t, "2024-07-19", first.Expiration)
	assert.Equal(t, 3.2, first.Last)
	assert.Equal(t, int64(1200), first.OpenInterest)
	assert.Equal(t, 0.14, first.ImpliedVolatility)

	// Missing type defaults to call.
	assert.Equal(t, models.Call, c.Options[2].OptionType)
}

func TestStore_StaleAfterTTL(t *testing.T) {
	s, now := newTestStore(t)
	receivePayload(t, s)

	*now = now.Add(5 * time.Minute)
	c, ok := s.Get("SPY")
	require.True(t, ok)
	assert.False(t, c.Stale)

	*now = now.Add(time.Second)
	c, ok = s.Get("SPY")
	require.True(t, ok)
	assert.True(t, c.Stale)
	assert.False(t, s.Status().Connected)
}

func TestStore_Lookups(t *testing.T) {
	s, _ := newTestStore(t)
	receivePayload(t, s)

	assert.Equal(t, []string{"2024-07-12", "2024-07-19"}, s.Expirations("spy"))
	assert.Equal(t, []float64{445, 450, 455}, s.Strikes("SPY", "2024-07-19"))
	assert.Empty(t, s.Strikes("SPY", "2025-01-17"))
	assert.Empty(t, s.Expirations("QQQ"))

	q, ok := s.Quote("spy", "2024-07-19", 450, models.Put)
	require.True(t, ok)
	assert.Equal(t, 2.5, q.Last)

	_, ok = s.Quote("spy", "2024-07-19", 450, models.Call)
	assert.False(t, ok)

	price, ok := s.CurrentPrice("SPY")
	require.True(t, ok)
	assert.Equal(t, 452.3, price)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t)
	receivePayload(t, s)

	c, _ := s.Get("SPY")
	c.Options[0].Bid = 999
	c.Expirations[0] = "mutated"

	again, _ := s.Get("SPY")
	assert.Equal(t, 3.1, again.Options[0].Bid)
	assert.Equal(t, "2024-07-12", again.Expirations[0])
}

func TestStore_ReceiveRejectsInvalid(t *testing.T) {
	price := 100.0
	tests := []struct {
		name string
		raw  RawChain
	}{
		{"missing ticker", RawChain{Price: &price}},
		{"bad option type", RawChain{Ticker: "X", Options: []RawContract{{Strike: 100, Expiration: "2024-07-19", OptionType: "straddle"}}}},
		{"zero strike", RawChain{Ticker: "X", Options: []RawContract{{Expiration: "2024-07-19"}}}},
		{"missing expiration", RawChain{Ticker: "X", Options: []RawContract{{Strike: 100}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			_, err := s.Receive(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidChain)
			assert.Zero(t, s.Status().CacheSize)
		})
	}
}

func TestStore_Status(t *testing.T) {
	s, now := newTestStore(t)
	st := s.Status()
	assert.False(t, st.Connected)
	assert.Nil(t, st.LastReceivedAt)
	assert.Empty(t, st.CachedTickers)

	receivePayload(t, s)
	*now = now.Add(time.Minute)
	s.Put(Chain{Ticker: "aapl", UnderlyingPrice: 210})

	st = s.Status()
	assert.True(t, st.Connected)
	assert.Equal(t, []string{"AAPL", "SPY"}, st.CachedTickers)
	assert.Equal(t, 2, st.CacheSize)
	require.NotNil(t, st.LastReceivedAt)
	assert.Equal(t, *now, *st.LastReceivedAt)
}
