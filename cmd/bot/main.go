package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/topgrade691028/binkiller/internal/config"
	"github.com/topgrade691028/binkiller/internal/exchange"
	"github.com/topgrade691028/binkiller/internal/execution"
	"github.com/topgrade691028/binkiller/internal/metrics"
	"github.com/topgrade691028/binkiller/internal/parser"
	"github.com/topgrade691028/binkiller/internal/router"
	"github.com/topgrade691028/binkiller/internal/signal"
	"github.com/topgrade691028/binkiller/internal/storage"
	"github.com/topgrade691028/binkiller/internal/strategy"
	"github.com/topgrade691028/binkiller/internal/util"
)

const maxMessageBytes = 64 << 10

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := util.NewLogger("info")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

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

	feed := exchange.NewFeed(cfg.Feed.Provider, cfg.Feed.Symbols, util.ComponentLogger(log, "feed"),
		exchange.WithPushInterval(time.Duration(cfg.Feed.PollInterval)*time.Millisecond))

	rtr := router.New(cfg.Feed.SettlementAsset, cfg.Feed.ReferenceSymbol, feed, util.ComponentLogger(log, "router"))
	rtr.SetSignals(signals)

	instances := strategy.Build(strategy.DefaultAxes(), rtr,
		time.Duration(cfg.Trading.BuyOrderLifetimeHours)*time.Hour, util.ComponentLogger(log, "strategy"))
	registry := strategy.NewRegistry(instances, feed, util.ComponentLogger(log, "registry"))
	registry.ImportState(state)

	gateway := execution.NewPaperGateway(exchange.NewFilterTable(), util.ComponentLogger(log, "gateway"))
	trader := execution.NewTrader(registry, gateway, execution.Params{
		StartingCapital:  cfg.Trading.StartingCapital,
		SizePerTrade:     cfg.Trading.SizePerTrade,
		ExcludedSymbols:  cfg.Trading.ExcludedSymbols,
		WindowDays:       cfg.Trading.WindowDays,
		PanicDailyChange: cfg.Trading.PanicDailyChange,
	}, util.ComponentLogger(log, "trader"))

	rtr.Subscribe(registry)
	rtr.Subscribe(trader)

	srv, mux := metrics.Serve(cfg.App.MetricsAddr)
	defer srv.Close()
	mux.HandleFunc("/signal", ingestHandler(rtr, util.ComponentLogger(log, "ingest")))
	mux.HandleFunc("/signal/", removeHandler(rtr, registry, util.ComponentLogger(log, "ingest")))
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("http up")

	go trader.Reconcile(ctx, time.Minute)

	updates := make(chan signal.PriceUpdate, 64)
	go func() {
		if err := feed.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.AutoSave(ctx, time.Duration(cfg.Storage.SaveIntervalSecs)*time.Second, registry, rtr)
	}()

	log.Info().Str("env", cfg.App.Env).Int("strategies", len(instances)).Msg("bot started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			wg.Wait()
			return
		case update := <-updates:
			registry.OnPriceUpdate(update.Prices)
		}
	}
}

// parseAny runs the known grammars in priority order, reporting which
// parser claimed the message.
func parseAny(text string) (*signal.Signal, string, error) {
	for _, p := range []parser.Parser{parser.VIP{}, parser.Cornix{}} {
		sig, err := p.Parse(text)
		if errors.Is(err, parser.ErrNotRecognized) {
			continue
		}
		if err != nil {
			return nil, p.Name(), err
		}
		return sig, p.Name(), nil
	}
	return nil, "none", parser.ErrNotRecognized
}

// ingestHandler accepts raw alert text on POST /signal and routes it.
// Rejections are part of normal operation and answer 422.
func ingestHandler(rtr *router.Router, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		sig, parserName, err := parseAny(string(body))
		if err != nil {
			metrics.SignalsTotal.WithLabelValues(parserName, "parse_error").Inc()
			log.Warn().Err(err).Msg("message not parseable")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := rtr.Route(sig); err != nil {
			metrics.SignalsTotal.WithLabelValues(parserName, "rejected").Inc()
			log.Info().Err(err).Str("symbol", sig.Symbol).Msg("signal rejected")
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		metrics.SignalsTotal.WithLabelValues(parserName, "accepted").Inc()
		log.Info().Str("signal", sig.ID).Str("symbol", sig.Symbol).Msg("signal accepted")
		w.WriteHeader(http.StatusAccepted)
	}
}

// removeHandler serves DELETE /signal/{id}: the manual-correction path
// that drops a signal and every order referencing it.
func removeHandler(rtr *router.Router, registry *strategy.Registry, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/signal/")
		if id == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		rtr.Remove(id)
		registry.RemoveSignal(id)
		log.Info().Str("signal", id).Msg("signal and orders removed")
		w.WriteHeader(http.StatusNoContent)
	}
}
