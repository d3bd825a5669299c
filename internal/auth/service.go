package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/carteira-app/carteira/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	sessions *shared.SessionManager
}

// NewService constructs a new Service.
func NewService(repo Repository, sessions *shared.SessionManager) *Service {
	return &Service{repo: repo, sessions: sessions}
}

// Register creates a user with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, name, email, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, name, email, string(hash))
}

// Authenticate validates email/password credentials and issues a session.
func (s *Service) Authenticate(ctx context.Context, email, password, ip, ua string) (User, *shared.Session, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return User{}, nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return User{}, nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, nil, shared.ErrInvalidCredentials
	}
	sess, err := s.sessions.Issue(ctx, user.ID, ip, ua)
	if err != nil {
		return User{}, nil, err
	}
	return user, sess, nil
}

// Logout revokes the bearer token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// CurrentUser loads the user behind an authenticated request.
func (s *Service) CurrentUser(ctx context.Context, userID int64) (User, error) {
	return s.repo.FindByID(ctx, userID)
}
