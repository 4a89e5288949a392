package router

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/topgrade691028/binkiller/internal/signal"
)

type stubMarket struct{ change float64 }

func (m stubMarket) DailyChange(symbol string) (float64, bool) { return m.change, true }

type recordingSub struct{ got []*signal.Signal }

func (s *recordingSub) OnSignal(sig *signal.Signal) { s.got = append(s.got, sig) }

func newSignal(id, symbol string) *signal.Signal {
	return &signal.Signal{
		ID:           id,
		Symbol:       symbol,
		Direction:    "LONG",
		Leverage:     []float64{1},
		Entry:        []float64{81, 84.5},
		OptimalEntry: 82.75,
		Targets:      signal.Targets{Short: []float64{85.5, 86.5, 88, 90}},
		StopLoss:     75.67,
		CreatedAt:    time.Now(),
	}
}

func TestRouteAcceptsAndFansOut(t *testing.T) {
	r := New("USDT", "BTCUSDT", stubMarket{change: -2.5}, zerolog.Nop())
	sub := &recordingSub{}
	r.Subscribe(sub)

	sig := newSignal("1", "FILUSDT")
	if err := r.Route(sig); err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if len(sub.got) != 1 {
		t.Fatalf("expected one delivery, got %d", len(sub.got))
	}
	if sig.MarketContext == nil || sig.MarketContext.DailyChangePct != -2.5 {
		t.Fatalf("expected market context attached, got %+v", sig.MarketContext)
	}
	if got, ok := r.Lookup("1"); !ok || got.Symbol != "FILUSDT" {
		t.Fatalf("expected signal stored, got %+v %v", got, ok)
	}
}

func TestRouteRejectsConsecutiveDuplicate(t *testing.T) {
	r := New("USDT", "BTCUSDT", stubMarket{}, zerolog.Nop())

	if err := r.Route(newSignal("1", "FILUSDT")); err != nil {
		t.Fatalf("first route failed: %v", err)
	}
	if err := r.Route(newSignal("2", "FILUSDT")); !errors.Is(err, ErrDuplicateSymbol) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	// A different symbol in between resets the cursor.
	if err := r.Route(newSignal("3", "ETHUSDT")); err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	if err := r.Route(newSignal("4", "FILUSDT")); err != nil {
		t.Fatalf("cursor should only track the last symbol, got %v", err)
	}
}

func TestRouteRejectsNonSettlementQuote(t *testing.T) {
	r := New("USDT", "BTCUSDT", stubMarket{}, zerolog.Nop())
	if err := r.Route(newSignal("1", "FILBTC")); !errors.Is(err, ErrNotSettlementQuoted) {
		t.Fatalf("expected settlement rejection, got %v", err)
	}
}

func TestRouteRejectsFallingSignal(t *testing.T) {
	r := New("USDT", "BTCUSDT", stubMarket{}, zerolog.Nop())
	sig := newSignal("1", "FILUSDT")
	sig.Entry = []float64{90, 95}
	if err := r.Route(sig); !errors.Is(err, ErrFallingSignal) {
		t.Fatalf("expected falling rejection, got %v", err)
	}
}

func TestSignalTableRoundTrip(t *testing.T) {
	r := New("USDT", "BTCUSDT", stubMarket{}, zerolog.Nop())
	if err := r.Route(newSignal("1", "FILUSDT")); err != nil {
		t.Fatalf("Route returned error: %v", err)
	}

	table := r.Signals()
	r2 := New("USDT", "BTCUSDT", stubMarket{}, zerolog.Nop())
	r2.SetSignals(table)
	if _, ok := r2.Lookup("1"); !ok {
		t.Fatalf("expected restored signal")
	}

	r2.Remove("1")
	if _, ok := r2.Lookup("1"); ok {
		t.Fatalf("expected signal removed")
	}
}
