package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/musicon/internal/apperror"
	"github.com/sbilibin2017/musicon/internal/jwt"
	"github.com/sbilibin2017/musicon/internal/logger"
	"github.com/sbilibin2017/musicon/internal/models"
	"github.com/sbilibin2017/musicon/internal/repositories"
	"golang.org/x/crypto/bcrypt"
)

//go:generate mockgen -source=auth.go -destination=auth_mock.go -package=services

// ResetTokenTTL is how long a password reset token stays redeemable.
const ResetTokenTTL = 10 * time.Minute

// Error variables
var (
	ErrMissingCredentials   = apperror.BadRequest("Please provide email and password!")
	ErrIncorrectCredentials = apperror.Unauthorized("Incorrect email or password")
	ErrUserGone             = apperror.Unauthorized("The user belonging to this token does no longer exist.")
	ErrPasswordChanged      = apperror.Unauthorized("User recently changed password! Please log in again.")
	ErrSessionRevoked       = apperror.Unauthorized("Your session has ended. Please log in again.")
	ErrNoUserWithEmail      = apperror.NotFound("There is no user with that email address.")
	ErrResetTokenInvalid    = apperror.BadRequest("Token is invalid or has expired")
	ErrWrongPassword        = apperror.Unauthorized("Your current password is wrong.")
	ErrEmailFailed          = apperror.New(http.StatusInternalServerError, "There was an error sending the email. Try again later!")
)

// Accounts defines the account operations authentication relies on.
type Accounts interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)                              // Inserts a new account, hashing its password
	Update(ctx context.Context, u *models.User) (*models.User, error)                              // Overwrites an account, hashing a new password
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)                              // Loads an account by id
	FindByEmail(ctx context.Context, email string) (*models.User, error)                           // Loads an account by email
	FindByResetToken(ctx context.Context, hashedToken string, now time.Time) (*models.User, error) // Loads the holder of an unexpired reset token
}

// Tokener issues and verifies session tokens.
type Tokener interface {
	Generate(ctx context.Context, userID uuid.UUID) (string, error)
	GetClaims(ctx context.Context, tokenString string) (*jwt.Claims, error)
}

// SessionStore remembers logged out tokens.
type SessionStore interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Mailer sends account emails.
type Mailer interface {
	SendWelcome(ctx context.Context, u *models.User, url string) error
	SendPasswordReset(ctx context.Context, u *models.User, url string) error
}

// SignupRequest holds the fields accepted at signup.
type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// AuthService handles signup, login, sessions and password management.
type AuthService struct {
	users    Accounts
	tokens   Tokener
	sessions SessionStore
	mailer   Mailer
	now      func() time.Time
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(users Accounts, tokens Tokener, sessions SessionStore, mailer Mailer) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		mailer:   mailer,
		now:      time.Now,
	}
}

// Signup creates a user account and opens a session. The role is always
// user. A failed welcome email is logged and does not fail the signup.
func (svc *AuthService) Signup(ctx context.Context, req SignupRequest, welcomeURL string) (*models.User, string, error) {
	u := &models.User{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	}
	u.ApplyDefaults(svc.now())
	u.Role = models.RoleUser

	if err := models.Check(u); err != nil {
		return nil, "", err
	}

	created, err := svc.users.Create(ctx, u)
	if err != nil {
		logger.Log.Errorw("failed to save user", "err", err)
		return nil, "", err
	}

	if svc.mailer != nil {
		if err := svc.mailer.SendWelcome(ctx, created, welcomeURL); err != nil {
			logger.Log.Errorw("failed to send welcome email", "user_id", created.ID, "err", err)
		}
	}

	return svc.issue(ctx, created)
}

// Login verifies credentials and opens a session.
func (svc *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	if email == "" || password == "" {
		return nil, "", ErrMissingCredentials
	}

	u, err := svc.users.FindByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		logger.Log.Infow("login for unknown email", "email", email)
		return nil, "", ErrIncorrectCredentials
	}
	if err != nil {
		logger.Log.Errorw("failed to get user", "err", err)
		return nil, "", err
	}

	if !u.Active || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		logger.Log.Infow("invalid credentials", "email", email)
		return nil, "", ErrIncorrectCredentials
	}

	return svc.issue(ctx, u)
}

// Logout revokes tokenString until it expires. Missing or invalid tokens
// have nothing to revoke.
func (svc *AuthService) Logout(ctx context.Context, tokenString string) error {
	if tokenString == "" {
		return nil
	}
	claims, err := svc.tokens.GetClaims(ctx, tokenString)
	if err != nil {
		return nil
	}
	if err := svc.sessions.Revoke(ctx, claims.ID, claims.ExpiryTime()); err != nil {
		logger.Log.Errorw("failed to revoke session", "jti", claims.ID, "err", err)
		return err
	}
	return nil
}

// Authenticate resolves a session token to its live user. Tokens that are
// revoked, belong to a deleted user or predate a password change are
// rejected.
func (svc *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := svc.tokens.GetClaims(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := svc.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		logger.Log.Errorw("failed to check session", "jti", claims.ID, "err", err)
		return nil, err
	}
	if revoked {
		return nil, ErrSessionRevoked
	}

	u, err := svc.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserGone
	}
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, ErrUserGone
	}

	if u.ChangedPasswordAfter(claims.IssuedTime()) {
		return nil, ErrPasswordChanged
	}

	return u, nil
}

// ForgotPassword stores a hashed reset token and mails the plain token
// appended to resetURL. When the email cannot be sent the token is dropped.
func (svc *AuthService) ForgotPassword(ctx context.Context, email, resetURL string) error {
	u, err := svc.users.FindByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNoUserWithEmail
	}
	if err != nil {
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}
	hashed := hashToken(token)
	expires := svc.now().Add(ResetTokenTTL)
	u.PasswordResetToken = &hashed
	u.PasswordResetExpires = &expires

	u, err = svc.users.Update(ctx, u)
	if err != nil {
		return err
	}

	if err := svc.mailer.SendPasswordReset(ctx, u, resetURL+"/"+token); err != nil {
		logger.Log.Errorw("failed to send password reset email", "user_id", u.ID, "err", err)
		u.ClearPasswordReset()
		if _, uerr := svc.users.Update(ctx, u); uerr != nil {
			logger.Log.Errorw("failed to clear password reset token", "user_id", u.ID, "err", uerr)
		}
		return ErrEmailFailed
	}

	return nil
}

// ResetPassword redeems a reset token, sets the new password and opens a
// session.
func (svc *AuthService) ResetPassword(ctx context.Context, token, password, passwordConfirm string) (*models.User, string, error) {
	u, err := svc.users.FindByResetToken(ctx, hashToken(token), svc.now())
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, "", ErrResetTokenInvalid
	}
	if err != nil {
		return nil, "", err
	}

	u.ClearPasswordReset()
	return svc.setPassword(ctx, u, password, passwordConfirm)
}

// ChangePassword replaces the password of the logged in user after checking
// the current one, then opens a fresh session.
func (svc *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, password, passwordConfirm string) (*models.User, string, error) {
	u, err := svc.users.FindByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)) != nil {
		return nil, "", ErrWrongPassword
	}

	return svc.setPassword(ctx, u, password, passwordConfirm)
}

func (svc *AuthService) setPassword(ctx context.Context, u *models.User, password, passwordConfirm string) (*models.User, string, error) {
	if password == "" {
		return nil, "", apperror.BadRequest("Invalid input data. Please provide a password")
	}
	u.Password = password
	u.PasswordConfirm = passwordConfirm
	if err := models.Check(u); err != nil {
		return nil, "", err
	}

	updated, err := svc.users.Update(ctx, u)
	if err != nil {
		return nil, "", err
	}
	return svc.issue(ctx, updated)
}

func (svc *AuthService) issue(ctx context.Context, u *models.User) (*models.User, string, error) {
	token, err := svc.tokens.Generate(ctx, u.ID)
	if err != nil {
		logger.Log.Errorw("failed to generate JWT", "err", err)
		return nil, "", err
	}
	return u, token, nil
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
