package session

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/deepsearchstack/deepsearch/internal/core/constants"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

const janitorInterval = 10 * time.Minute

type memoryEntry struct {
	mu      sync.Mutex
	session *domain.Session
	// expires holds a unix-nano deadline; atomic so readers never race the
	// sliding refresh in AppendMessage.
	expires atomic.Int64
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.UnixNano() > e.expires.Load()
}

// MemoryStore keeps sessions in process memory with a TTL janitor. Suitable
// for single-node deployments; everything is lost on restart.
type MemoryStore struct {
	sessions *xsync.Map[string, *memoryEntry]
	ttl      time.Duration
	done     chan struct{}
	once     sync.Once
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = constants.DefaultSessionTTL
	}
	s := &MemoryStore{
		sessions: xsync.NewMap[string, *memoryEntry](),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) Create(_ context.Context, req *domain.SessionCreate) (*domain.Session, error) {
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID: uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []domain.SessionMessage{},
	}
	if req != nil && len(req.Metadata) > 0 {
		sess.Metadata = req.Metadata
	}
	entry := &memoryEntry{session: sess}
	entry.expires.Store(now.Add(s.ttl).UnixNano())
	s.sessions.Store(sess.SessionID, entry)
	return cloneSession(sess), nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	entry, ok := s.sessions.Load(sessionID)
	if !ok || entry.expired(time.Now()) {
		return nil, domain.ErrSessionNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return cloneSession(entry.session), nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, sessionID string, msg domain.SessionMessage) error {
	entry, ok := s.sessions.Load(sessionID)
	if !ok || entry.expired(time.Now()) {
		return domain.ErrSessionNotFound
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	entry.mu.Lock()
	entry.session.Messages = append(entry.session.Messages, msg)
	entry.session.UpdatedAt = time.Now().UTC()
	entry.mu.Unlock()
	entry.expires.Store(time.Now().Add(s.ttl).UnixNano())
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit, offset int) ([]*domain.Session, error) {
	now := time.Now()
	all := make([]*domain.Session, 0)
	s.sessions.Range(func(_ string, entry *memoryEntry) bool {
		if entry.expired(now) {
			return true
		}
		entry.mu.Lock()
		all = append(all, cloneSession(entry.session))
		entry.mu.Unlock()
		return true
	})

	// Newest first, as the HTTP listing expects.
	sort.Slice(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})

	if offset >= len(all) {
		return []*domain.Session{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	if _, ok := s.sessions.LoadAndDelete(sessionID); !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *MemoryStore) Close(context.Context) error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.sessions.Range(func(id string, entry *memoryEntry) bool {
				if entry.expired(now) {
					s.sessions.Delete(id)
				}
				return true
			})
		case <-s.done:
			return
		}
	}
}

func cloneSession(in *domain.Session) *domain.Session {
	out := *in
	out.Messages = append([]domain.SessionMessage(nil), in.Messages...)
	if in.Metadata != nil {
		out.Metadata = make(map[string]string, len(in.Metadata))
		for k, v := range in.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
