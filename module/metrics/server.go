package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server serves the /metrics endpoint for prometheus.
type Server struct {
	server *http.Server
	log    zerolog.Logger
}

// NewServer creates a metrics server for the given gatherer on the specified port.
func NewServer(log zerolog.Logger, port uint, gatherer prometheus.Gatherer) *Server {
	addr := ":" + strconv.Itoa(int(port))

	mux := http.NewServeMux()
	endpoint := "/metrics"
	mux.Handle(endpoint, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Server{
		server: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second},
		log:    log.With().Str("component", "metrics_server").Str("address", addr).Logger(),
	}
}

// Run serves until ctx is cancelled, then shuts the server down.
func (m *Server) Run(ctx context.Context) error {
	errs := make(chan error, 1)
	go func() {
		m.log.Info().Msg("metrics server started")
		errs <- m.server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.server.Shutdown(shutdownCtx)
	// http.ErrServerClosed is returned when Close or Shutdown is called
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.log.Err(err).Msg("error shutting down metrics server")
	}
	return err
}
