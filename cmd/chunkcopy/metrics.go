package main

import (
	"net"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ib-77/chunkflow/internal/config"
	"github.com/ib-77/chunkflow/pkg/copier"
)

type exporter struct {
	reg     *prometheus.Registry
	metrics *copier.Metrics
	srv     *http.Server
	cfg     config.MetricsConfig
	logger  log.Logger
}

func startMetrics(cfg config.MetricsConfig, logger log.Logger) (*exporter, error) {
	if cfg.Listen == "" && cfg.Textfile == "" {
		return &exporter{metrics: copier.NopMetrics(), cfg: cfg, logger: logger}, nil
	}

	reg := prometheus.NewRegistry()
	e := &exporter{
		reg:     reg,
		metrics: copier.NewMetrics(reg, cfg.Namespace),
		cfg:     cfg,
		logger:  logger,
	}

	if cfg.Listen != "" {
		ln, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			return nil, errors.Wrapf(err, "error listening on %s", cfg.Listen)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		e.srv = &http.Server{Handler: mux}

		level.Info(logger).Log("event", "metrics", "addr", ln.Addr().String())
		go func() {
			if err := e.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				level.Warn(logger).Log("event", "metrics", "err", err)
			}
		}()
	}
	return e, nil
}

// close stops the listener and writes the textfile, if configured.
func (e *exporter) close() error {
	if e.srv != nil {
		_ = e.srv.Close()
	}
	if e.reg == nil || e.cfg.Textfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(e.cfg.Textfile, e.reg); err != nil {
		return errors.Wrapf(err, "error writing metrics to %s", e.cfg.Textfile)
	}
	return nil
}
