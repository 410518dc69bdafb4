package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/musicon/internal/models"
)

// UserRepository stores accounts.
type UserRepository struct {
	*Repository[models.User]
}

func NewUserRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *UserRepository {
	return &UserRepository{Repository: NewRepository[models.User](db, txGetter, UsersTable)}
}

// FindByEmail returns the account registered under email, or ErrNotFound.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT * FROM users WHERE email = $1 LIMIT 1`
	return r.findOne(ctx, query, strings.ToLower(email))
}

// FindByResetToken returns the account holding the hashed reset token if the
// token has not expired at now, or ErrNotFound.
func (r *UserRepository) FindByResetToken(ctx context.Context, hashedToken string, now time.Time) (*models.User, error) {
	const query = `
		SELECT * FROM users
		WHERE password_reset_token = $1
		  AND password_reset_expires > $2
		LIMIT 1
	`
	return r.findOne(ctx, query, hashedToken, now)
}
