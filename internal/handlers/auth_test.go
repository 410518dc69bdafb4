package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/sbilibin2017/musicon/internal/apperror"
	"github.com/sbilibin2017/musicon/internal/jwt"
	"github.com/sbilibin2017/musicon/internal/models"
	"github.com/sbilibin2017/musicon/internal/request"
	"github.com/sbilibin2017/musicon/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCookie = SessionCookie{Expires: 9 * 24 * time.Hour}

func postJSON(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == jwt.CookieName {
			return c
		}
	}
	return nil
}

func failureMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp apperror.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Message
}

func TestSignupHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := NewMockSignuper(ctrl)
	user := &models.User{ID: uuid.New(), Name: "Jane", Email: "jane@example.com", Role: models.RoleUser}

	tests := []struct {
		name         string
		inputBody    any
		mockSetup    func()
		expectedCode int
		expectCookie bool
	}{
		{
			name: "success",
			inputBody: services.SignupRequest{
				Name:            "Jane",
				Email:           "jane@example.com",
				Password:        "secret123",
				PasswordConfirm: "secret123",
			},
			mockSetup: func() {
				mockSvc.EXPECT().
					Signup(gomock.Any(), gomock.Any(), "http://example.com/api/v1/users/me").
					DoAndReturn(func(_ context.Context, req services.SignupRequest, _ string) (*models.User, string, error) {
						assert.Equal(t, "jane@example.com", req.Email)
						return user, "JWT_TOKEN", nil
					})
			},
			expectedCode: http.StatusCreated,
			expectCookie: true,
		},
		{
			name:         "invalid JSON",
			inputBody:    "{invalid json}",
			mockSetup:    func() {},
			expectedCode: http.StatusBadRequest,
		},
		{
			name:      "duplicate email",
			inputBody: services.SignupRequest{Name: "Jane", Email: "jane@example.com"},
			mockSetup: func() {
				mockSvc.EXPECT().
					Signup(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, "", apperror.BadRequest("Duplicate field value: jane@example.com. Please use another value!"))
			},
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			rr := httptest.NewRecorder()
			NewSignupHandler(mockSvc, testCookie).ServeHTTP(rr, postJSON(http.MethodPost, "/api/v1/users/signup", tt.inputBody))

			assert.Equal(t, tt.expectedCode, rr.Code)
			c := sessionCookie(rr)
			if !tt.expectCookie {
				assert.Nil(t, c)
				return
			}

			require.NotNil(t, c)
			assert.Equal(t, "JWT_TOKEN", c.Value)
			assert.True(t, c.HttpOnly)
			assert.Equal(t, "/", c.Path)

			var resp struct {
				Status string `json:"status"`
				Token  string `json:"token"`
				Data   struct {
					User models.User `json:"user"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, StatusSuccess, resp.Status)
			assert.Equal(t, "JWT_TOKEN", resp.Token)
			assert.Equal(t, user.ID, resp.Data.User.ID)
		})
	}
}

func TestLoginHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := NewMockLoginer(ctrl)
	user := &models.User{ID: uuid.New(), Email: "john@example.com"}

	tests := []struct {
		name         string
		inputBody    any
		mockSetup    func()
		expectedCode int
		expectedMsg  string
	}{
		{
			name:      "success",
			inputBody: LoginRequest{Email: "john@example.com", Password: "pass1234"},
			mockSetup: func() {
				mockSvc.EXPECT().
					Login(gomock.Any(), "john@example.com", "pass1234").
					Return(user, "JWT_TOKEN", nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "invalid JSON",
			inputBody:    "{invalid json}",
			mockSetup:    func() {},
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "Invalid JSON body",
		},
		{
			name:      "wrong credentials",
			inputBody: LoginRequest{Email: "john@example.com", Password: "wrongpass"},
			mockSetup: func() {
				mockSvc.EXPECT().
					Login(gomock.Any(), "john@example.com", "wrongpass").
					Return(nil, "", services.ErrIncorrectCredentials)
			},
			expectedCode: http.StatusUnauthorized,
			expectedMsg:  "Incorrect email or password",
		},
		{
			name:      "internal error",
			inputBody: LoginRequest{Email: "john@example.com", Password: "pass1234"},
			mockSetup: func() {
				mockSvc.EXPECT().
					Login(gomock.Any(), "john@example.com", "pass1234").
					Return(nil, "", errors.New("database error"))
			},
			expectedCode: http.StatusInternalServerError,
			expectedMsg:  "Something went wrong!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			rr := httptest.NewRecorder()
			NewLoginHandler(mockSvc, testCookie).ServeHTTP(rr, postJSON(http.MethodPost, "/api/v1/users/login", tt.inputBody))

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, failureMessage(t, rr))
				return
			}
			require.NotNil(t, sessionCookie(rr))
			assert.Equal(t, "JWT_TOKEN", sessionCookie(rr).Value)
		})
	}
}

func TestLogoutHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := NewMockLogouter(ctrl)
	mockTok := NewMockTokener(ctrl)

	tests := []struct {
		name         string
		mockSetup    func()
		expectedCode int
	}{
		{
			name: "revokes token",
			mockSetup: func() {
				mockTok.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).Return("JWT_TOKEN", nil)
				mockSvc.EXPECT().Logout(gomock.Any(), "JWT_TOKEN").Return(nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "no token",
			mockSetup: func() {
				mockTok.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).Return("", errors.New("missing"))
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "revocation fails",
			mockSetup: func() {
				mockTok.EXPECT().GetTokenFromRequest(gomock.Any(), gomock.Any()).Return("JWT_TOKEN", nil)
				mockSvc.EXPECT().Logout(gomock.Any(), "JWT_TOKEN").Return(errors.New("redis down"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			rr := httptest.NewRecorder()
			NewLogoutHandler(mockSvc, mockTok, testCookie).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/users/logout", nil))

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedCode != http.StatusOK {
				assert.Nil(t, sessionCookie(rr))
				return
			}
			c := sessionCookie(rr)
			require.NotNil(t, c)
			assert.Equal(t, jwt.LoggedOutVal, c.Value)
			assert.WithinDuration(t, time.Now().Add(logoutCookieTTL), c.Expires, 2*time.Second)
			assert.JSONEq(t, `{"status":"success"}`, rr.Body.String())
		})
	}
}

func TestForgotPasswordHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := NewMockPasswordResetter(ctrl)

	t.Run("success", func(t *testing.T) {
		mockSvc.EXPECT().
			ForgotPassword(gomock.Any(), "jane@example.com", "https://musicon.example/api/v1/users/reset-password").
			Return(nil)

		req := postJSON(http.MethodPost, "https://musicon.example/api/v1/users/forgot-password", ForgotPasswordRequest{Email: "jane@example.com"})
		rr := httptest.NewRecorder()
		NewForgotPasswordHandler(mockSvc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"success","message":"Token sent to email!"}`, rr.Body.String())
	})

	t.Run("unknown email", func(t *testing.T) {
		mockSvc.EXPECT().
			ForgotPassword(gomock.Any(), "ghost@example.com", gomock.Any()).
			Return(services.ErrNoUserWithEmail)

		rr := httptest.NewRecorder()
		NewForgotPasswordHandler(mockSvc).ServeHTTP(rr, postJSON(http.MethodPost, "/", ForgotPasswordRequest{Email: "ghost@example.com"}))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestResetPasswordHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := NewMockPasswordResetter(ctrl)
	user := &models.User{ID: uuid.New()}

	r := chi.NewRouter()
	r.Patch("/reset-password/{token}", NewResetPasswordHandler(mockSvc, testCookie))

	t.Run("success", func(t *testing.T) {
		mockSvc.EXPECT().
			ResetPassword(gomock.Any(), "abc123", "newpass123", "newpass123").
			Return(user, "JWT_TOKEN", nil)

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, postJSON(http.MethodPatch, "/reset-password/abc123", ResetPasswordRequest{Password: "newpass123", PasswordConfirm: "newpass123"}))

		assert.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, sessionCookie(rr))
	})

	t.Run("expired token", func(t *testing.T) {
		mockSvc.EXPECT().
			ResetPassword(gomock.Any(), "old", gomock.Any(), gomock.Any()).
			Return(nil, "", services.ErrResetTokenInvalid)

		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, postJSON(http.MethodPatch, "/reset-password/old", ResetPasswordRequest{Password: "newpass123", PasswordConfirm: "newpass123"}))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Nil(t, sessionCookie(rr))
	})
}

func TestChangePasswordHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := NewMockPasswordChanger(ctrl)
	user := &models.User{ID: uuid.New()}
	body := ChangePasswordRequest{PasswordCurrent: "oldpass123", Password: "newpass123", PasswordConfirm: "newpass123"}

	t.Run("success", func(t *testing.T) {
		mockSvc.EXPECT().
			ChangePassword(gomock.Any(), user.ID, "oldpass123", "newpass123", "newpass123").
			Return(user, "NEW_TOKEN", nil)

		req := postJSON(http.MethodPatch, "/api/v1/users/change-password", body)
		req = req.WithContext(request.WithUser(req.Context(), user))
		rr := httptest.NewRecorder()
		NewChangePasswordHandler(mockSvc, testCookie).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, sessionCookie(rr))
		assert.Equal(t, "NEW_TOKEN", sessionCookie(rr).Value)
	})

	t.Run("wrong current password", func(t *testing.T) {
		mockSvc.EXPECT().
			ChangePassword(gomock.Any(), user.ID, gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, "", services.ErrWrongPassword)

		req := postJSON(http.MethodPatch, "/api/v1/users/change-password", body)
		req = req.WithContext(request.WithUser(req.Context(), user))
		rr := httptest.NewRecorder()
		NewChangePasswordHandler(mockSvc, testCookie).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("no session", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewChangePasswordHandler(mockSvc, testCookie).ServeHTTP(rr, postJSON(http.MethodPatch, "/", body))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestMeHandler(t *testing.T) {
	user := &models.User{ID: uuid.New(), Name: "Jane", Email: "jane@example.com", Role: models.RoleArtist}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req = req.WithContext(request.WithUser(req.Context(), user))
	rr := httptest.NewRecorder()
	NewMeHandler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Data models.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, user.ID, resp.Data.ID)
	assert.Equal(t, models.RoleArtist, resp.Data.Role)

	rr = httptest.NewRecorder()
	NewMeHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
