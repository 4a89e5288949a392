package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/topgrade691028/binkiller/internal/order"
	"github.com/topgrade691028/binkiller/internal/signal"
	"github.com/topgrade691028/binkiller/internal/strategy"
)

func testState() strategy.State {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return strategy.State{
		"urgentbuy-shortest-orgstop-highleverage": {
			"o1": &order.Order{
				ID:        "o1",
				SignalID:  "424",
				Symbol:    "FILUSDT",
				Side:      order.Buy,
				Price:     82.75,
				Leverage:  3,
				Status:    order.Active,
				CreatedAt: now,
				ExpiresAt: now.Add(24 * time.Hour),
			},
		},
	}
}

func testSignals() map[string]*signal.Signal {
	return map[string]*signal.Signal{
		"424": {
			ID:           "424",
			Symbol:       "FILUSDT",
			Direction:    "LONG",
			Leverage:     []float64{3, 5},
			Entry:        []float64{81, 84.5},
			OptimalEntry: 82.75,
			Targets:      signal.Targets{Short: []float64{85.5, 86.5}},
			StopLoss:     75.67,
			CreatedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestStateRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	want := testState()
	if err := store.SaveState(want); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	got, err := store.LoadState()
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	o, ok := got["urgentbuy-shortest-orgstop-highleverage"]["o1"]
	if !ok {
		t.Fatalf("order o1 missing after round trip: %v", got)
	}
	if o.Symbol != "FILUSDT" || o.Side != order.Buy || o.Price != 82.75 || o.Status != order.Active {
		t.Fatalf("order mangled: %+v", o)
	}
	if !o.CreatedAt.Equal(want["urgentbuy-shortest-orgstop-highleverage"]["o1"].CreatedAt) {
		t.Fatalf("createdAt mangled: %v", o.CreatedAt)
	}
}

func TestSignalsRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := store.SaveSignals(testSignals()); err != nil {
		t.Fatalf("SaveSignals: %v", err)
	}
	got, err := store.LoadSignals()
	if err != nil {
		t.Fatalf("LoadSignals: %v", err)
	}

	sig, ok := got["424"]
	if !ok {
		t.Fatalf("signal 424 missing after round trip")
	}
	if sig.Symbol != "FILUSDT" || sig.OptimalEntry != 82.75 || sig.StopLoss != 75.67 {
		t.Fatalf("signal mangled: %+v", sig)
	}
	if len(sig.Leverage) != 2 || sig.Leverage[1] != 5 {
		t.Fatalf("leverage mangled: %v", sig.Leverage)
	}
}

func TestLoadMissingFilesStartsCold(t *testing.T) {
	store, err := NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	state, err := store.LoadState()
	if err != nil {
		t.Fatalf("LoadState on empty dir: %v", err)
	}
	if len(state) != 0 {
		t.Fatalf("expected empty state, got %v", state)
	}

	signals, err := store.LoadSignals()
	if err != nil {
		t.Fatalf("LoadSignals on empty dir: %v", err)
	}
	if len(signals) != 0 {
		t.Fatalf("expected empty signal table, got %v", signals)
	}
}

func TestLoadCorruptState(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data.json"), []byte("{nope"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	if _, err := store.LoadState(); err == nil {
		t.Fatalf("expected decode error for corrupt state file")
	}
}

type staticSources struct {
	state   strategy.State
	signals map[string]*signal.Signal
}

func (s staticSources) ExportState() strategy.State        { return s.state }
func (s staticSources) Signals() map[string]*signal.Signal { return s.signals }

func TestAutoSaveWritesFinalSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	src := staticSources{state: testState(), signals: testSignals()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.AutoSave(ctx, time.Hour, src, src)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("autosave did not stop after cancel")
	}

	state, err := store.LoadState()
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(state) != 1 {
		t.Fatalf("expected final snapshot on shutdown, got %v", state)
	}
}
