package ports

import (
	"context"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

// SessionStore is the append-log of conversation turns. AppendMessage is
// append-only; existing messages are never rewritten.
type SessionStore interface {
	Create(ctx context.Context, req *domain.SessionCreate) (*domain.Session, error)
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	AppendMessage(ctx context.Context, sessionID string, msg domain.SessionMessage) error
	List(ctx context.Context, limit, offset int) ([]*domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
	Close(ctx context.Context) error
}
