package commands

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
	"git.home.luguber.info/inful/modjar/internal/logfields"
	"git.home.luguber.info/inful/modjar/internal/metrics"
)

// metricsServer exposes the recorder while watch mode runs.
type metricsServer struct {
	srv *http.Server
	ln  net.Listener
}

// startMetricsServer binds addr before serving so an occupied port fails
// the command instead of being logged from a goroutine.
func startMetricsServer(ctx context.Context, addr string, recorder *metrics.PrometheusRecorder) (*metricsServer, error) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "bind metrics listener").
			WithContext(errors.ContextURL, addr).
			Build()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.HTTPHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	m := &metricsServer{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second, IdleTimeout: 120 * time.Second},
		ln:  ln,
	}
	go func() {
		if err := m.srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server error", logfields.Error(err))
		}
	}()
	slog.Info("Serving metrics", logfields.URL("http://"+m.Addr()+"/metrics"))
	return m, nil
}

// Addr returns the bound address, useful when addr asked for port 0.
func (m *metricsServer) Addr() string { return m.ln.Addr().String() }

func (m *metricsServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.srv.Shutdown(ctx); err != nil {
		slog.Warn("Metrics server shutdown error", logfields.Error(err))
	}
}
