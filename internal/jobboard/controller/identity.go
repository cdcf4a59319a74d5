package controller

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores anything longer
	maxNameLen     = 100
	maxEmailLen    = 255
)

// IdentityService registers users and logs them in.
type IdentityService struct {
	repo   UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	logger *zap.Logger
	now    func() time.Time
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(repo UserRepository, hasher PasswordHasher, tokens TokenIssuer, logger *zap.Logger) *IdentityService {
	return &IdentityService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		logger: logger.Named("identity_service"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account with a hashed password.
func (s *IdentityService) Register(ctx context.Context, email, password, name string, role models.Role) (*models.User, error) {
	email = normalizeEmail(email)
	name = strings.TrimSpace(name)

	switch {
	case !validEmail(email):
		return nil, fmt.Errorf("%w: invalid email", e.ErrInvalidInput)
	case len(password) < minPasswordLen || len(password) > maxPasswordLen:
		return nil, fmt.Errorf("%w: password must be %d to %d characters", e.ErrInvalidInput, minPasswordLen, maxPasswordLen)
	case name == "" || len(name) > maxNameLen:
		return nil, fmt.Errorf("%w: invalid name", e.ErrInvalidInput)
	case !role.Valid():
		return nil, fmt.Errorf("%w: role must be employer or employee", e.ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, e.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(role)),
	)
	return user, nil
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *IdentityService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return "", nil, e.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return "", nil, e.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return token, user, nil
}

// GetUser fetches an account by ID.
func (s *IdentityService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" || len(email) > maxEmailLen {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
