package services

import (
	"fmt"
)

// ServiceRegistry gives services typed access to each other after the
// registration phase completes.
type ServiceRegistry struct {
	services map[string]ManagedService
}

func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[string]ManagedService),
	}
}

func (r *ServiceRegistry) Register(name string, service ManagedService) {
	r.services[name] = service
}

func (r *ServiceRegistry) Get(name string) (ManagedService, error) {
	service, exists := r.services[name]
	if !exists {
		return nil, fmt.Errorf("service %s not found", name)
	}
	return service, nil
}

func (r *ServiceRegistry) GetMetrics() (*MetricsService, error) {
	service, err := r.Get("metrics")
	if err != nil {
		return nil, err
	}
	metrics, ok := service.(*MetricsService)
	if !ok {
		return nil, fmt.Errorf("service metrics is not a MetricsService")
	}
	return metrics, nil
}

func (r *ServiceRegistry) GetSessions() (*SessionService, error) {
	service, err := r.Get("sessions")
	if err != nil {
		return nil, err
	}
	sessions, ok := service.(*SessionService)
	if !ok {
		return nil, fmt.Errorf("service sessions is not a SessionService")
	}
	return sessions, nil
}

func (r *ServiceRegistry) GetLLM() (*LLMService, error) {
	service, err := r.Get("llm")
	if err != nil {
		return nil, err
	}
	llm, ok := service.(*LLMService)
	if !ok {
		return nil, fmt.Errorf("service llm is not an LLMService")
	}
	return llm, nil
}

func (r *ServiceRegistry) GetPipeline() (*PipelineService, error) {
	service, err := r.Get("pipeline")
	if err != nil {
		return nil, err
	}
	pipeline, ok := service.(*PipelineService)
	if !ok {
		return nil, fmt.Errorf("service pipeline is not a PipelineService")
	}
	return pipeline, nil
}

func (r *ServiceRegistry) GetHTTP() (*HTTPService, error) {
	service, err := r.Get("http")
	if err != nil {
		return nil, err
	}
	http, ok := service.(*HTTPService)
	if !ok {
		return nil, fmt.Errorf("service http is not a HTTPService")
	}
	return http, nil
}
