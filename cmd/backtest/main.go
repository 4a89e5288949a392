package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/topgrade691028/binkiller/internal/config"
	"github.com/topgrade691028/binkiller/internal/signal"
	"github.com/topgrade691028/binkiller/internal/storage"
	"github.com/topgrade691028/binkiller/internal/strategy"
	"github.com/topgrade691028/binkiller/internal/util"
)

// signalTable satisfies the strategy signal lookup from a saved snapshot.
type signalTable map[string]*signal.Signal

func (t signalTable) Lookup(id string) (*signal.Signal, bool) {
	sig, ok := t[id]
	return sig, ok
}

// staticPrices marks open positions against the last saved quotes, or
// leaves them unvalued when none were saved.
type staticPrices map[string]float64

func (p staticPrices) Prices() map[string]float64 {
	out := make(map[string]float64, len(p))
	for sym, px := range p {
		out[sym] = px
	}
	return out
}

func (p staticPrices) CurrentPrice(symbol string) (float64, bool) {
	px, ok := p[symbol]
	return px, ok
}

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	top := flag.Int("top", 20, "number of strategies to print")
	flag.Parse()

	log := util.NewLogger("warn")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	store, err := storage.NewStore(cfg.Storage.Dir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open storage")
	}
	state, err := store.LoadState()
	if err != nil {
		log.Fatal().Err(err).Msg("load strategy state")
	}
	signals, err := store.LoadSignals()
	if err != nil {
		log.Fatal().Err(err).Msg("load signal table")
	}

	instances := strategy.Build(strategy.DefaultAxes(), signalTable(signals),
		time.Duration(cfg.Trading.BuyOrderLifetimeHours)*time.Hour, log)
	registry := strategy.NewRegistry(instances, staticPrices{}, log)
	registry.ImportState(state)

	snapshots := registry.Rank(cfg.Trading.StartingCapital, cfg.Trading.SizePerTrade,
		cfg.Trading.ExcludedSymbols, cfg.Trading.WindowDays)
	if *top < len(snapshots) {
		snapshots = snapshots[:*top]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSTRATEGY\tTOTAL\tSPOT\tLOAN\tTRADES")
	for i, snap := range snapshots {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%.2f\t%.2f\t%d\n",
			i+1, snap.Strategy, snap.Total, snap.Spot, snap.Loan, len(snap.Trades))
	}
	w.Flush()
}
