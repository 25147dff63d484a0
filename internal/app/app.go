package app

import (
	"context"
	"fmt"
	"time"

	"github.com/deepsearchstack/deepsearch/internal/app/services"
	"github.com/deepsearchstack/deepsearch/internal/config"
	"github.com/deepsearchstack/deepsearch/internal/logger"
)

// Application assembles the service stack and drives its lifecycle through
// the service manager.
type Application struct {
	startTime time.Time
	config    *config.Config
	logger    logger.StyledLogger
	manager   *services.ServiceManager
}

func New(startTime time.Time, cfg *config.Config, styledLogger logger.StyledLogger) (*Application, error) {
	app := &Application{
		startTime: startTime,
		config:    cfg,
		logger:    styledLogger,
		manager:   services.NewServiceManager(styledLogger),
	}

	if err := app.registerServices(); err != nil {
		return nil, fmt.Errorf("failed to register services: %w", err)
	}

	return app, nil
}

// registerServices wires the stack. Registration order does not matter; the
// manager resolves start order from declared dependencies.
func (a *Application) registerServices() error {
	metricsSvc := services.NewMetricsService(&a.config.Metrics, a.logger)
	sessionsSvc := services.NewSessionService(&a.config.Sessions, a.logger)
	llmSvc := services.NewLLMService(a.config, a.logger)
	pipelineSvc := services.NewPipelineService(a.config, a.logger)
	httpSvc := services.NewHTTPService(a.config, a.logger)

	llmSvc.SetMetricsService(metricsSvc)
	pipelineSvc.SetDependencies(metricsSvc, llmSvc)
	httpSvc.SetDependencies(metricsSvc, sessionsSvc, llmSvc, pipelineSvc)

	for _, svc := range []services.ManagedService{metricsSvc, sessionsSvc, llmSvc, pipelineSvc, httpSvc} {
		if err := a.manager.Register(svc); err != nil {
			return err
		}
	}
	return nil
}

func (a *Application) Start(ctx context.Context) error {
	a.logger.Info("Starting services", "config", a.config.Filename)
	return a.manager.Start(ctx)
}

func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

func (a *Application) GetRegistry() *services.ServiceRegistry {
	return a.manager.GetRegistry()
}
