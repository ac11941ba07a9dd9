// Package service runs the sidecar HTTP endpoints of a battery binary: a
// healthz probe and the prometheus metrics scrape target. Both are opt-in
// via the --serve flag; a plain battery run starts neither.
package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/log"

	"github.com/batterykit/battery/metrics"
)

const (
	DefaultHealthzAddr = "0.0.0.0:8080"
	DefaultMetricsAddr = "0.0.0.0:7300"
)

// Config for the sidecar servers. Empty addresses fall back to the defaults.
type Config struct {
	Log         log.Logger
	HealthzAddr string
	MetricsAddr string
}

type Service struct {
	log     log.Logger
	healthz *HealthzServer
	metrics *MetricsServer

	healthzAddr string
	metricsAddr string
}

func New(cfg Config) *Service {
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	if cfg.HealthzAddr == "" {
		cfg.HealthzAddr = DefaultHealthzAddr
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = DefaultMetricsAddr
	}
	return &Service{
		log:         cfg.Log,
		healthz:     &HealthzServer{log: cfg.Log},
		metrics:     &MetricsServer{},
		healthzAddr: cfg.HealthzAddr,
		metricsAddr: cfg.MetricsAddr,
	}
}

// Start launches both servers in the background. Listen errors are logged
// and recorded, never fatal; the battery run proceeds without the sidecar.
func (s *Service) Start(ctx context.Context) {
	go s.serve(ctx, "healthz", s.healthzAddr, s.healthz.Start)
	go s.serve(ctx, "metrics", s.metricsAddr, s.metrics.Start)
	s.log.Info("Service started",
		"healthz", s.healthzAddr, "metrics", s.metricsAddr)
}

func (s *Service) serve(ctx context.Context, name, addr string, start func(context.Context, string) error) {
	if err := start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("Sidecar server failed", "server", name, "addr", addr, "err", err)
		metrics.RecordErrorDetails("sidecar_"+name, err)
	}
}

func (s *Service) Shutdown() {
	if err := s.healthz.Shutdown(); err != nil {
		s.log.Error("Healthz shutdown failed", "err", err)
	}
	if err := s.metrics.Shutdown(); err != nil {
		s.log.Error("Metrics shutdown failed", "err", err)
	}
	s.log.Info("Service stopped")
}
