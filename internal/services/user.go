package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/musicon/internal/logger"
	"github.com/sbilibin2017/musicon/internal/models"
	"github.com/sbilibin2017/musicon/internal/query"
	"golang.org/x/crypto/bcrypt"
)

//go:generate mockgen -source=user.go -destination=user_mock.go -package=services

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)                              // Inserts a new account
	Update(ctx context.Context, u *models.User) (*models.User, error)                              // Overwrites an account
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)                              // Loads an account by id
	FindByEmail(ctx context.Context, email string) (*models.User, error)                           // Loads an account by email
	FindByResetToken(ctx context.Context, hashedToken string, now time.Time) (*models.User, error) // Loads the holder of an unexpired reset token
	Delete(ctx context.Context, id uuid.UUID) error                                                // Removes an account
	FindAll(ctx context.Context, q *query.Query) ([]models.User, int, error)                       // Lists accounts
	Schema() query.Schema                                                                          // Queryable fields
}

// UserService persists accounts, hashing passwords on every write path.
type UserService struct {
	repo UserRepository
	cost int
	now  func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo, cost: bcrypt.DefaultCost, now: time.Now}
}

// prepare normalizes the email and replaces a plain password with its hash.
// A changed password on an existing account records passwordChangedAt one
// second in the past so that a token issued right after still validates.
func (s *UserService) prepare(u *models.User, existing bool) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	if u.Password == "" {
		u.PasswordConfirm = ""
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), s.cost)
	if err != nil {
		logger.Log.Errorw("failed to hash password", "err", err)
		return err
	}
	u.PasswordHash = string(hash)
	u.Password = ""
	u.PasswordConfirm = ""

	if existing {
		changed := s.now().Add(-time.Second)
		u.PasswordChangedAt = &changed
	}
	return nil
}

// Create stores a new account.
func (s *UserService) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if err := s.prepare(u, false); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, u)
}

// Update stores changes to an existing account.
func (s *UserService) Update(ctx context.Context, u *models.User) (*models.User, error) {
	if err := s.prepare(u, true); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, u)
}

func (s *UserService) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *UserService) FindByResetToken(ctx context.Context, hashedToken string, now time.Time) (*models.User, error) {
	return s.repo.FindByResetToken(ctx, hashedToken, now)
}

func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *UserService) FindAll(ctx context.Context, q *query.Query) ([]models.User, int, error) {
	return s.repo.FindAll(ctx, q)
}

func (s *UserService) Schema() query.Schema {
	return s.repo.Schema()
}
