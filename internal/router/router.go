// Package router validates parsed signals and fans accepted ones out to
// every interested subscriber.
package router

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/topgrade691028/binkiller/internal/signal"
)

// Rejection reasons. Rejected signals are dropped and logged; they are
// never an error that surfaces upward.
var (
	// ErrDuplicateSymbol rejects a signal repeating the immediately
	// preceding accepted signal's symbol. This is a single-cursor
	// heuristic, not a history scan.
	ErrDuplicateSymbol = errors.New("duplicated signal")
	// ErrNotSettlementQuoted rejects symbols not quoted in the
	// settlement asset.
	ErrNotSettlementQuoted = errors.New("symbol not quoted in settlement asset")
	// ErrFallingSignal rejects signals whose entry band sits above the
	// smallest short-term target.
	ErrFallingSignal = errors.New("falling signal not supported")
)

// MarketData supplies the reference context attached to accepted signals.
type MarketData interface {
	DailyChange(symbol string) (float64, bool)
}

// Subscriber receives accepted signals. Delivery order across
// subscribers is unspecified and redelivery must be tolerated.
type Subscriber interface {
	OnSignal(sig *signal.Signal)
}

// Router deduplicates and validates signals, attaches market context,
// keeps the signal table, and broadcasts accepted signals.
type Router struct {
	log             zerolog.Logger
	settlementAsset string
	referenceSymbol string
	market          MarketData

	mu         sync.RWMutex
	lastSymbol string
	signals    map[string]*signal.Signal
	subs       []Subscriber
}

// New builds a router quoting symbols in settlementAsset and attaching
// referenceSymbol's daily change as market context.
func New(settlementAsset, referenceSymbol string, market MarketData, log zerolog.Logger) *Router {
	return &Router{
		log:             log,
		settlementAsset: settlementAsset,
		referenceSymbol: referenceSymbol,
		market:          market,
		signals:         make(map[string]*signal.Signal),
	}
}

// Subscribe registers a subscriber for accepted signals.
func (r *Router) Subscribe(sub Subscriber) {
	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()
}

// Route validates the signal and, on acceptance, stores it and fans it
// out. The returned error is one of the rejection sentinels, already
// logged; callers only need it for bookkeeping.
func (r *Router) Route(sig *signal.Signal) error {
	if err := r.validate(sig); err != nil {
		r.log.Info().Str("symbol", sig.Symbol).Str("signal", sig.ID).Err(err).Msg("signal rejected")
		return err
	}

	if change, ok := r.market.DailyChange(r.referenceSymbol); ok {
		sig.MarketContext = &signal.MarketContext{Symbol: r.referenceSymbol, DailyChangePct: change}
	}

	r.mu.Lock()
	r.lastSymbol = sig.Symbol
	r.signals[sig.ID] = sig
	subs := make([]Subscriber, len(r.subs))
	copy(subs, r.subs)
	r.mu.Unlock()

	r.log.Info().Str("symbol", sig.Symbol).Str("signal", sig.ID).
		Floats64("entry", sig.Entry).Float64("stopLoss", sig.StopLoss).Msg("signal routed")

	for _, sub := range subs {
		sub.OnSignal(sig)
	}
	return nil
}

func (r *Router) validate(sig *signal.Signal) error {
	r.mu.RLock()
	last := r.lastSymbol
	r.mu.RUnlock()

	if sig.Symbol == last {
		return ErrDuplicateSymbol
	}
	if !strings.HasSuffix(sig.Symbol, r.settlementAsset) {
		return fmt.Errorf("%w: %s", ErrNotSettlementQuoted, sig.Symbol)
	}
	if len(sig.Targets.Short) > 0 && sig.MaxEntry() > sig.Targets.MinShort() {
		return ErrFallingSignal
	}
	return nil
}

// Lookup resolves a routed signal by id.
func (r *Router) Lookup(id string) (*signal.Signal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sig, ok := r.signals[id]
	return sig, ok
}

// Signals returns a copy of the signal table for persistence.
func (r *Router) Signals() map[string]*signal.Signal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*signal.Signal, len(r.signals))
	for id, sig := range r.signals {
		out[id] = sig
	}
	return out
}

// SetSignals replaces the signal table, used when restoring saved state.
func (r *Router) SetSignals(signals map[string]*signal.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = make(map[string]*signal.Signal, len(signals))
	for id, sig := range signals {
		r.signals[id] = sig
	}
}

// Remove drops a signal from the table, used for manual correction.
func (r *Router) Remove(id string) {
	r.mu.Lock()
	delete(r.signals, id)
	r.mu.Unlock()
}
