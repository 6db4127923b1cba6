package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nsrs/shardgate/pkg/sglog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHandler serves Prometheus metrics and a health probe.
func NewHandler() http.Handler {
	mux := http.NewServeMux()

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>shardgate metrics</title></head>
<body>
<h1>shardgate</h1>
<ul>
  <li><a href="/metrics">Prometheus Metrics</a></li>
  <li><a href="/health">Health Check</a></li>
</ul>
</body>
</html>`))
	})

	return mux
}

// Serve runs the metrics server on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sglog.Zero.Info().
		Str("addr", addr).
		Msg("metrics: starting server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		sglog.Zero.Error().Err(err).Msg("metrics: server failed")
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
