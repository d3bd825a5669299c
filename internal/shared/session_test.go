package shared

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, time.Hour), mr
}

func TestSessionIssueAndResolve(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Issue(ctx, 42, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)

	resolved, err := sm.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	require.Equal(t, int64(42), resolved.UserID)
	require.Equal(t, sess.Token, resolved.Token)
	require.Equal(t, "10.0.0.1", resolved.IP)
}

func TestSessionResolveUnknownToken(t *testing.T) {
	sm, _ := newTestSessionManager(t)

	_, err := sm.Resolve(context.Background(), "no-such-token")
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = sm.Resolve(context.Background(), "")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionExpiry(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Issue(ctx, 7, "", "")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = sm.Resolve(ctx, sess.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionResolveSlidesExpiry(t *testing.T) {
	sm, mr := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Issue(ctx, 7, "", "")
	require.NoError(t, err)

	mr.FastForward(45 * time.Minute)
	_, err = sm.Resolve(ctx, sess.Token)
	require.NoError(t, err)

	// the earlier resolve reset the clock, so the original deadline passes
	mr.FastForward(45 * time.Minute)
	_, err = sm.Resolve(ctx, sess.Token)
	require.NoError(t, err)
}

func TestSessionRevoke(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Issue(ctx, 7, "", "")
	require.NoError(t, err)
	require.NoError(t, sm.Revoke(ctx, sess.Token))

	_, err = sm.Resolve(ctx, sess.Token)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	require.Empty(t, BearerToken(r))

	r.Header.Set("Authorization", "Bearer abc123")
	require.Equal(t, "abc123", BearerToken(r))

	r.Header.Set("Authorization", "bearer abc123")
	require.Equal(t, "abc123", BearerToken(r))

	r.Header.Set("Authorization", "Basic abc123")
	require.Empty(t, BearerToken(r))
}
