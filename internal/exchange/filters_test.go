package exchange

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRoundPriceSnapsToTick(t *testing.T) {
	table := NewFilterTable()
	table.Set("FILUSDT", SymbolFilter{
		TickSize: decimal.RequireFromString("0.01"),
		StepSize: decimal.RequireFromString("0.1"),
	})

	if px := table.RoundPrice("FILUSDT", 82.7777); px != 82.77 {
		t.Fatalf("expected 82.77, got %v", px)
	}
	if qty := table.RoundQuantity("FILUSDT", 12.345); qty != 12.3 {
		t.Fatalf("expected 12.3, got %v", qty)
	}
}

func TestRoundUnknownSymbolPassesThrough(t *testing.T) {
	table := NewFilterTable()
	if px := table.RoundPrice("DOGEUSDT", 0.123456); px != 0.123456 {
		t.Fatalf("expected pass-through, got %v", px)
	}
	if qty := table.RoundQuantity("DOGEUSDT", 7.77); qty != 7.77 {
		t.Fatalf("expected pass-through, got %v", qty)
	}
}
