package cli

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/aural/internal/runtime"
)

// StatusSource is what the debug server reads. *runtime.Runtime satisfies it.
type StatusSource interface {
	Status() runtime.Status
}

// NewDebugHandler serves the runtime's published status and metrics:
//
//	GET /debug/state   consumer state as JSON
//	GET /debug/buffer  virtual buffer text
//	GET /metrics       Prometheus exposition
func NewDebugHandler(src StatusSource, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/debug/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(src.Status()); err != nil {
			slog.Warn("debug state encode failed", "error", err)
		}
	})

	r.Get("/debug/buffer", func(w http.ResponseWriter, r *http.Request) {
		st := src.Status()
		if st.Buffer == "" {
			http.Error(w, "no virtual buffer", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Buffer-ID", st.Buffer)
		_, _ = w.Write([]byte(st.Text))
	})

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// serveDebug runs the debug server until ctx is done.
func serveDebug(ctx context.Context, addr string, h http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("debug server shutdown failed", "error", err)
		}
	}()

	slog.Info("debug server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("debug server failed", "addr", addr, "error", err)
	}
}
