package domain

import (
	"time"
)

// SessionMessage is one appended conversation turn. Existing messages are
// never rewritten.
type SessionMessage struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type Session struct {
	SessionID string            `json:"session_id"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Messages  []SessionMessage  `json:"messages"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type SessionCreate struct {
	Metadata map[string]string `json:"metadata,omitempty"`
}

type SessionListResponse struct {
	Sessions []*Session `json:"sessions"`
	Total    int        `json:"total"`
}
