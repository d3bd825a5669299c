package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound indicates the bearer token resolves to no live session.
var ErrSessionNotFound = errors.New("session not found")

// Session is the server-side record behind a bearer token.
type Session struct {
	Token     string    `json:"-"`
	UserID    int64     `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// SessionManager issues and resolves opaque bearer tokens backed by Redis.
// The SPA keeps the token client-side and sends it as an Authorization header.
type SessionManager struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, ttl time.Duration) *SessionManager {
	return &SessionManager{client: client, prefix: "carteira:session:", ttl: ttl}
}

// Issue creates a session for the user and returns its bearer token.
func (sm *SessionManager) Issue(ctx context.Context, userID int64, ip, ua string) (*Session, error) {
	sess := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		IssuedAt:  time.Now().UTC(),
		IP:        ip,
		UserAgent: ua,
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := sm.client.Set(ctx, sm.key(sess.Token), payload, sm.ttl).Err(); err != nil {
		return nil, err
	}
	return sess, nil
}

// Resolve looks up the session behind a token and slides its expiry.
func (sm *SessionManager) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	payload, err := sm.client.Get(ctx, sm.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, err
	}
	sess.Token = token
	_ = sm.client.Expire(ctx, sm.key(token), sm.ttl).Err()
	return &sess, nil
}

// Revoke deletes the session behind a token.
func (sm *SessionManager) Revoke(ctx context.Context, token string) error {
	return sm.client.Del(ctx, sm.key(token)).Err()
}

func (sm *SessionManager) key(token string) string {
	return sm.prefix + token
}

// BearerToken extracts the bearer token from an Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
