package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestServeRegistersMetrics(t *testing.T) {
	srv, mux := Serve(":0")
	defer srv.Close()
	if mux == nil {
		t.Fatalf("expected reusable mux")
	}

	SignalsTotal.WithLabelValues("vip", "routed").Inc()
	OrdersTotal.WithLabelValues("FILUSDT", "BUY").Inc()

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	want := map[string]bool{"signals_total": false, "orders_total": false}
	for _, mf := range mfs {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("%s metric not found", name)
		}
	}
}
