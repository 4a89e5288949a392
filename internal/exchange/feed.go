// Package exchange hosts the market data feed and the execution gateway contract.
package exchange

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/topgrade691028/binkiller/internal/metrics"
	"github.com/topgrade691028/binkiller/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic prices (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams live mini-tickers from Binance public websockets.
	ProviderBinance = "binance"
)

const defaultPushInterval = 2 * time.Second

// Feed maintains a live price map and pushes full-map updates on a
// fixed cadence. It also tracks each symbol's daily change so routing
// can attach market context to accepted signals.
type Feed struct {
	provider     string
	log          zerolog.Logger
	pushInterval time.Duration

	mu          sync.RWMutex
	symbols     []string
	prices      map[string]float64
	dailyChange map[string]float64
}

// Option configures Feed construction parameters.
type Option func(*Feed)

// WithPushInterval overrides the cadence of full price-map pushes.
func WithPushInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.pushInterval = d
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, symbols []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:     strings.ToLower(provider),
		log:          log,
		pushInterval: defaultPushInterval,
		prices:       make(map[string]float64),
		dailyChange:  make(map[string]float64),
	}
	f.setSymbols(symbols)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Feed) setSymbols(symbols []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	f.symbols = f.symbols[:0]
	for sym := range unique {
		f.symbols = append(f.symbols, sym)
	}
	sort.Strings(f.symbols)
}

// CurrentPrice returns the last seen price for the symbol.
func (f *Feed) CurrentPrice(symbol string) (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	px, ok := f.prices[symbol]
	return px, ok
}

// Prices returns a copy of the full price map.
func (f *Feed) Prices() map[string]float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]float64, len(f.prices))
	for sym, px := range f.prices {
		out[sym] = px
	}
	return out
}

// DailyChange returns the symbol's 24h percent move when known.
func (f *Feed) DailyChange(symbol string) (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	pct, ok := f.dailyChange[symbol]
	return pct, ok
}

func (f *Feed) setPrice(symbol string, price, changePct float64) {
	f.mu.Lock()
	f.prices[symbol] = price
	f.dailyChange[symbol] = changePct
	f.mu.Unlock()
}

// Run keeps the price cache warm and pushes full-map updates onto out
// until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- signal.PriceUpdate) error {
	switch f.provider {
	case ProviderBinance:
		go f.collectBinance(ctx)
	default:
		go f.collectStub(ctx)
	}
	return f.push(ctx, out)
}

func (f *Feed) push(ctx context.Context, out chan<- signal.PriceUpdate) error {
	ticker := time.NewTicker(f.pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			prices := f.Prices()
			if len(prices) == 0 {
				continue
			}
			select {
			case out <- signal.PriceUpdate{Prices: prices, Ts: ts}:
				metrics.PriceUpdatesTotal.Inc()
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// collectStub walks every symbol upward from 100 in 0.1 steps.
func (f *Feed) collectStub(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	px := 100.0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			px += 0.1
			f.mu.RLock()
			symbols := make([]string, len(f.symbols))
			copy(symbols, f.symbols)
			f.mu.RUnlock()
			for _, sym := range symbols {
				f.setPrice(sym, px, 0)
			}
		}
	}
}
