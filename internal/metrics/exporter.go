package metrics

import (
	"context"
	"net"
	"net/http"
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
	"codeberg.org/mutker/backlightd/internal/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Exporter serves the default Prometheus registry on /metrics.
type Exporter struct {
	addr     string
	listener net.Listener
}

// NewExporter binds addr right away so a taken port fails at startup.
func NewExporter(addr string) (*Exporter, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrInitFailed, err)
	}

	return &Exporter{addr: listener.Addr().String(), listener: listener}, nil
}

func (e *Exporter) Addr() string {
	return e.addr
}

// Serve runs the HTTP server until ctx is done.
func (e *Exporter) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(e.listener)
	}()

	logger.Info().Str("addr", e.addr).Msg("Serving metrics")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.New().Wrap(errors.ErrShutdownFailed, err)
		}
		return ctx.Err()
	case err := <-errCh:
		return errors.New().Wrap(errors.ErrLoopExited, err)
	}
}

func (e *Exporter) String() string {
	return "metrics-exporter"
}
