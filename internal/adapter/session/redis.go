package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/deepsearchstack/deepsearch/internal/core/constants"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const redisKeyPrefix = "deepsearch:session:"

// RedisStore persists sessions as JSON blobs with a server-side TTL. Appends
// rewrite the whole blob; TTL slides on every write.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = constants.DefaultSessionTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context, req *domain.SessionCreate) (*domain.Session, error) {
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
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", sessionID, err)
	}
	return &sess, nil
}

func (s *RedisStore) AppendMessage(ctx context.Context, sessionID string, msg domain.SessionMessage) error {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = time.Now().UTC()
	return s.save(ctx, sess)
}

func (s *RedisStore) List(ctx context.Context, limit, offset int) ([]*domain.Session, error) {
	var sessions []*domain.Session
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("listing sessions: %w", err)
		}
		var sess domain.Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			continue
		}
		sessions = append(sessions, &sess)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning sessions: %w", err)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	if offset >= len(sessions) {
		return []*domain.Session{}, nil
	}
	sessions = sessions[offset:]
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	deleted, err := s.client.Del(ctx, redisKeyPrefix+sessionID).Result()
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", sessionID, err)
	}
	if deleted == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *RedisStore) Close(context.Context) error {
	return s.client.Close()
}

func (s *RedisStore) save(ctx context.Context, sess *domain.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", sess.SessionID, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+sess.SessionID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing session %s: %w", sess.SessionID, err)
	}
	return nil
}
