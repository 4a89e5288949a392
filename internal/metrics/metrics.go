package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Alerts seen per parser and routing outcome"},
		[]string{"parser", "outcome"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Simulated orders created"},
		[]string{"symbol", "side"},
	)
	PriceUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "price_updates_total", Help: "Full price-map pushes from the feed"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decisions_total", Help: "Trading decisions submitted to the gateway"},
		[]string{"symbol", "side"},
	)
)

func init() {
	prometheus.MustRegister(SignalsTotal, OrdersTotal, PriceUpdatesTotal, DecisionsTotal)
}

// Serve exposes /metrics on the returned server's mux. The mux is also
// returned so callers can mount extra handlers (e.g. the alert ingest
// endpoint) on the same listener.
func Serve(addr string) (*http.Server, *http.ServeMux) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv, mux
}
