// Package health serves the liveness banner, store health and Prometheus metrics over HTTP.
package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether the durable store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewMux builds the HTTP routes
func NewMux(store Pinger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleBanner)
	mux.HandleFunc("GET /healthz", handleHealthz(store))
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func handleBanner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("relaybot is running"))
}

// handleHealthz answers liveness probes by pinging the store
func handleHealthz(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// Start runs the HTTP server and shuts down gracefully on context cancellation
func Start(ctx context.Context, store Pinger, addr string, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewMux(store),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("HTTP server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
