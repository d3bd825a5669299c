package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/carteira-app/carteira/internal/shared"
)

type memoryUserRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]User)}
}

func (r *memoryUserRepo) Create(ctx context.Context, name, email, passwordHash string) (User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return User{}, ErrEmailTaken
		}
	}
	r.nextID++
	u := User{
		ID:           r.nextID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	r.users[u.ID] = u
	return u, nil
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

var _ Repository = (*memoryUserRepo)(nil)

func newTestAuth(t *testing.T) (*Service, *memoryUserRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := newMemoryUserRepo()
	return NewService(repo, shared.NewSessionManager(client, time.Hour)), repo
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, repo := newTestAuth(t)

	user, err := svc.Register(context.Background(), "Ana", "ana@example.com", "s3cret")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", user.PasswordHash)
	require.Len(t, repo.users, 1)

	_, err = svc.Register(context.Background(), "Ana", "ana@example.com", "other")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthenticateIssuesSession(t *testing.T) {
	svc, _ := newTestAuth(t)

	registered, err := svc.Register(context.Background(), "Ana", "ana@example.com", "s3cret")
	require.NoError(t, err)

	user, sess, err := svc.Authenticate(context.Background(), "ana@example.com", "s3cret", "10.0.0.1", "ua")
	require.NoError(t, err)
	require.Equal(t, registered.ID, user.ID)
	require.NotEmpty(t, sess.Token)

	current, err := svc.CurrentUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", current.Email)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	svc, repo := newTestAuth(t)

	_, err := svc.Register(context.Background(), "Ana", "ana@example.com", "s3cret")
	require.NoError(t, err)

	_, _, err = svc.Authenticate(context.Background(), "ana@example.com", "wrong", "", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Authenticate(context.Background(), "nobody@example.com", "s3cret", "", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	// a deactivated user cannot log in even with the right password
	for id, u := range repo.users {
		u.IsActive = false
		repo.users[id] = u
	}
	_, _, err = svc.Authenticate(context.Background(), "ana@example.com", "s3cret", "", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _ := newTestAuth(t)

	_, err := svc.Register(context.Background(), "Ana", "ana@example.com", "s3cret")
	require.NoError(t, err)
	_, sess, err := svc.Authenticate(context.Background(), "ana@example.com", "s3cret", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), sess.Token))

	_, err = svc.sessions.Resolve(context.Background(), sess.Token)
	require.ErrorIs(t, err, shared.ErrSessionNotFound)
}
