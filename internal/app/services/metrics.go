package services

import (
	"context"

	"github.com/deepsearchstack/deepsearch/internal/adapter/metrics"
	"github.com/deepsearchstack/deepsearch/internal/config"
	"github.com/deepsearchstack/deepsearch/internal/core/ports"
	"github.com/deepsearchstack/deepsearch/internal/logger"
)

// MetricsService owns the request recorder and, when enabled, the prometheus
// bridge. It has no dependencies and starts first so every other service can
// record from the moment it comes up.
type MetricsService struct {
	config   *config.MetricsConfig
	logger   logger.StyledLogger
	recorder *metrics.Recorder
	bridge   *metrics.PrometheusBridge
	tracked  ports.MetricsRecorder
}

func NewMetricsService(cfg *config.MetricsConfig, logger logger.StyledLogger) *MetricsService {
	return &MetricsService{
		config: cfg,
		logger: logger,
	}
}

func (s *MetricsService) Name() string {
	return "metrics"
}

func (s *MetricsService) Start(ctx context.Context) error {
	s.recorder = metrics.NewRecorder(s.config.RetentionHours)
	s.tracked = s.recorder

	if s.config.Prometheus {
		s.bridge = metrics.NewPrometheusBridge()
		s.tracked = metrics.NewTracked(s.recorder, s.bridge)
		s.logger.Info("prometheus exposition enabled")
	}

	return nil
}

func (s *MetricsService) Stop(ctx context.Context) error {
	if s.recorder != nil {
		s.recorder.Stop()
	}
	return nil
}

func (s *MetricsService) Dependencies() []string {
	return nil
}

// Recorder returns the recorder behind the MetricsRecorder port. When
// prometheus is enabled it fans out to the bridge as well.
func (s *MetricsService) Recorder() ports.MetricsRecorder {
	return s.tracked
}

// Bridge returns the prometheus bridge, nil when disabled.
func (s *MetricsService) Bridge() *metrics.PrometheusBridge {
	return s.bridge
}
