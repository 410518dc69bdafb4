package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sbilibin2017/musicon/internal/apperror"
	"github.com/sbilibin2017/musicon/internal/jwt"
	"github.com/sbilibin2017/musicon/internal/logger"
	"github.com/sbilibin2017/musicon/internal/models"
	"github.com/sbilibin2017/musicon/internal/request"
	"github.com/sbilibin2017/musicon/internal/services"
)

//go:generate mockgen -source=auth.go -destination=auth_mock.go -package=handlers

// BasePath prefixes every API route.
const BasePath = "/api/v1"

// logoutCookieTTL is how long the browser keeps the logged out marker.
const logoutCookieTTL = 10 * time.Second

// Signuper defines the interface that the signup service must implement.
type Signuper interface {
	Signup(ctx context.Context, req services.SignupRequest, welcomeURL string) (*models.User, string, error)
}

// Loginer defines the interface that the login service must implement.
type Loginer interface {
	Login(ctx context.Context, email, password string) (*models.User, string, error)
}

// Logouter ends sessions.
type Logouter interface {
	Logout(ctx context.Context, tokenString string) error
}

// PasswordResetter issues and redeems password reset tokens.
type PasswordResetter interface {
	ForgotPassword(ctx context.Context, email, resetURL string) error
	ResetPassword(ctx context.Context, token, password, passwordConfirm string) (*models.User, string, error)
}

// PasswordChanger replaces the password of a logged in user.
type PasswordChanger interface {
	ChangePassword(ctx context.Context, userID uuid.UUID, current, password, passwordConfirm string) (*models.User, string, error)
}

// Tokener extracts the session token of a request.
type Tokener interface {
	GetTokenFromRequest(ctx context.Context, r *http.Request) (string, error)
}

// SessionCookie controls the cookie carrying the session token.
type SessionCookie struct {
	Expires time.Duration
}

func (c SessionCookie) set(w http.ResponseWriter, r *http.Request, value string, expires time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     jwt.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(expires),
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

// sendToken sets the session cookie and writes the token with the user.
func (c SessionCookie) sendToken(w http.ResponseWriter, r *http.Request, status int, u *models.User, token string) {
	c.set(w, r, token, c.Expires)
	writeJSON(w, status, Response{
		Status: StatusSuccess,
		Token:  token,
		Data:   UserData{User: u},
	})
}

// UserData wraps the user in authentication responses.
// swagger:model UserData
type UserData struct {
	User *models.User `json:"user"`
}

// LoginRequest represents the JSON body for user login
// swagger:model LoginRequest
type LoginRequest struct {
	// Email
	// required: true
	// default: john@example.com
	Email string `json:"email"`

	// Password
	// required: true
	// default: secret123
	Password string `json:"password"`
}

// ForgotPasswordRequest names the account to reset.
// swagger:model ForgotPasswordRequest
type ForgotPasswordRequest struct {
	// Email
	// required: true
	Email string `json:"email"`
}

// ResetPasswordRequest carries the new password.
// swagger:model ResetPasswordRequest
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// ChangePasswordRequest carries the current and the new password.
// swagger:model ChangePasswordRequest
type ChangePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// NewSignupHandler returns an HTTP handler for user registration.
// @Summary Sign up
// @Description Creates a user account with the user role and opens a session.
// @Tags auth
// @Accept json
// @Produce json
// @Param signupRequest body services.SignupRequest true "Signup request"
// @Success 201 {object} handlers.Response "Session token and user"
// @Failure 400 {object} apperror.Response "Invalid input or duplicate email"
// @Router /users/signup [post]
func NewSignupHandler(svc Signuper, cookie SessionCookie) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.SignupRequest
		if err := bind(w, r, &req); err != nil {
			apperror.Write(w, err)
			return
		}

		u, token, err := svc.Signup(r.Context(), req, baseURL(r)+BasePath+"/users/me")
		if err != nil {
			apperror.Write(w, err)
			return
		}

		cookie.sendToken(w, r, http.StatusCreated, u, token)
	}
}

// NewLoginHandler returns an HTTP handler for user login.
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param loginRequest body handlers.LoginRequest true "Login Request"
// @Success 200 {object} handlers.Response "JWT token returned"
// @Failure 400 {object} apperror.Response "Missing email or password"
// @Failure 401 {object} apperror.Response "Incorrect email or password"
// @Router /users/login [post]
func NewLoginHandler(svc Loginer, cookie SessionCookie) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := bind(w, r, &req); err != nil {
			apperror.Write(w, err)
			return
		}

		u, token, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			apperror.Write(w, err)
			return
		}

		cookie.sendToken(w, r, http.StatusOK, u, token)
	}
}

// NewLogoutHandler returns an HTTP handler that ends the session.
// @Summary Log out
// @Description Revokes the presented token and replaces the session cookie.
// @Tags auth
// @Produce json
// @Success 200 {object} handlers.Response
// @Router /users/logout [get]
func NewLogoutHandler(svc Logouter, tokener Tokener, cookie SessionCookie) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := tokener.GetTokenFromRequest(r.Context(), r)
		if err == nil {
			if err := svc.Logout(r.Context(), token); err != nil {
				apperror.Write(w, err)
				return
			}
		}

		cookie.set(w, r, jwt.LoggedOutVal, logoutCookieTTL)
		writeJSON(w, http.StatusOK, Response{Status: StatusSuccess})
	}
}

// NewForgotPasswordHandler returns an HTTP handler that mails a reset link.
// @Summary Forgot password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body handlers.ForgotPasswordRequest true "Account email"
// @Success 200 {object} handlers.Response
// @Failure 404 {object} apperror.Response "No user with that email"
// @Failure 500 {object} apperror.Response "Email could not be sent"
// @Router /users/forgot-password [post]
func NewForgotPasswordHandler(svc PasswordResetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ForgotPasswordRequest
		if err := bind(w, r, &req); err != nil {
			apperror.Write(w, err)
			return
		}

		if err := svc.ForgotPassword(r.Context(), req.Email, baseURL(r)+BasePath+"/users/reset-password"); err != nil {
			apperror.Write(w, err)
			return
		}

		writeJSON(w, http.StatusOK, Response{Status: StatusSuccess, Message: "Token sent to email!"})
	}
}

// NewResetPasswordHandler returns an HTTP handler that redeems a reset token.
// @Summary Reset password
// @Tags auth
// @Accept json
// @Produce json
// @Param token path string true "Reset token"
// @Param request body handlers.ResetPasswordRequest true "New password"
// @Success 200 {object} handlers.Response
// @Failure 400 {object} apperror.Response "Token is invalid or has expired"
// @Router /users/reset-password/{token} [patch]
func NewResetPasswordHandler(svc PasswordResetter, cookie SessionCookie) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ResetPasswordRequest
		if err := bind(w, r, &req); err != nil {
			apperror.Write(w, err)
			return
		}

		u, token, err := svc.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password, req.PasswordConfirm)
		if err != nil {
			apperror.Write(w, err)
			return
		}

		cookie.sendToken(w, r, http.StatusOK, u, token)
	}
}

// NewChangePasswordHandler returns an HTTP handler that changes the password
// of the logged in user.
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body handlers.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} handlers.Response
// @Failure 401 {object} apperror.Response "Current password is wrong"
// @Router /users/change-password [patch]
func NewChangePasswordHandler(svc PasswordChanger, cookie SessionCookie) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := request.User(r.Context())
		if u == nil {
			logger.Log.Errorw("change password without a session")
			apperror.Write(w, apperror.Unauthorized("You are not logged in! Please log in to get access."))
			return
		}

		var req ChangePasswordRequest
		if err := bind(w, r, &req); err != nil {
			apperror.Write(w, err)
			return
		}

		updated, token, err := svc.ChangePassword(r.Context(), u.ID, req.PasswordCurrent, req.Password, req.PasswordConfirm)
		if err != nil {
			apperror.Write(w, err)
			return
		}

		cookie.sendToken(w, r, http.StatusOK, updated, token)
	}
}

// NewMeHandler returns the logged in user.
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} handlers.Response
// @Failure 401 {object} apperror.Response
// @Router /users/me [get]
func NewMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := request.User(r.Context())
		if u == nil {
			apperror.Write(w, apperror.Unauthorized("You are not logged in! Please log in to get access."))
			return
		}
		writeData(w, http.StatusOK, u)
	}
}
