package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// --- Ops HTTP Server ---

// startOpsServer serves /healthz and Prometheus /metrics for monitoring
// probes. Only started when listenAddr is configured; the bot itself owns no
// other HTTP surface. Ticket state is read through the manager's counter so
// the registry stays private to the lifecycle controller.
func startOpsServer(cfg *Config, activeTickets func() int) *http.Server {
	started := time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthzHandler(activeTickets, started))
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logInfo("ops server listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logError("ops server failed", "error", err)
		}
	}()

	return srv
}

func healthzHandler(activeTickets func() int, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":        "ok",
			"activeTickets": activeTickets(),
			"uptime":        time.Since(started).Round(time.Second).String(),
		})
	}
}
