package shared

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore tracks live access tokens in Redis so they can be revoked.
type SessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Session is the server-side record of an issued token.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Role      Role      `json:"role"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, prefix string, ttl time.Duration) *SessionStore {
	if prefix == "" {
		prefix = "session"
	}
	return &SessionStore{client: client, prefix: prefix, ttl: ttl}
}

// Create registers a new session for the user and returns it.
func (s *SessionStore) Create(ctx context.Context, userID int64, role Role, ip, ua string) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:        s.generateID(),
		UserID:    userID,
		Role:      role,
		IP:        ip,
		UserAgent: ua,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, s.key(sess.ID), data, s.ttl).Err(); err != nil {
		return nil, err
	}
	if err := s.client.SAdd(ctx, s.userKey(userID), sess.ID).Err(); err != nil {
		return nil, err
	}
	_ = s.client.Expire(ctx, s.userKey(userID), s.ttl).Err()
	return sess, nil
}

// Load returns the live session for id or ErrUnauthorized.
func (s *SessionStore) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrUnauthorized
	}
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Destroy deletes a session.
func (s *SessionStore) Destroy(ctx context.Context, id string) error {
	sess, err := s.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil
		}
		return err
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return s.client.SRem(ctx, s.userKey(sess.UserID), id).Err()
}

// DestroyUser revokes every session owned by the user.
func (s *SessionStore) DestroyUser(ctx context.Context, userID int64) error {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.key(id))
	}
	keys = append(keys, s.userKey(userID))
	return s.client.Del(ctx, keys...).Err()
}

// TTL exposes the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

func (s *SessionStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *SessionStore) userKey(userID int64) string {
	return s.prefix + ":user:" + strconv.FormatInt(userID, 10)
}

func (s *SessionStore) generateID() string {
	return uuid.NewString()
}
