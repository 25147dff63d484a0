package services

import (
	"context"

	"github.com/deepsearchstack/deepsearch/internal/adapter/session"
	"github.com/deepsearchstack/deepsearch/internal/config"
	"github.com/deepsearchstack/deepsearch/internal/core/ports"
	"github.com/deepsearchstack/deepsearch/internal/logger"
)

// SessionService owns the conversation store. The store is nil when storage
// is configured off, and the HTTP layer reports sessions as disabled.
type SessionService struct {
	config *config.SessionsConfig
	logger logger.StyledLogger
	store  ports.SessionStore
}

func NewSessionService(cfg *config.SessionsConfig, logger logger.StyledLogger) *SessionService {
	return &SessionService{
		config: cfg,
		logger: logger,
	}
}

func (s *SessionService) Name() string {
	return "sessions"
}

func (s *SessionService) Start(ctx context.Context) error {
	store, err := session.New(ctx, session.Config{
		Storage:     s.config.Storage,
		RedisURL:    s.config.RedisURL,
		PostgresDSN: s.config.PostgresDSN,
		TTL:         s.config.TTL,
	}, s.logger)
	if err != nil {
		return err
	}
	s.store = store
	return nil
}

func (s *SessionService) Stop(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Close(ctx)
}

func (s *SessionService) Dependencies() []string {
	return nil
}

// Store returns the session store, nil when storage is disabled.
func (s *SessionService) Store() ports.SessionStore {
	return s.store
}
