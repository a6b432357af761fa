package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recite-app/recite-api/internal/config"
	"github.com/recite-app/recite-api/internal/domain"
	"github.com/recite-app/recite-api/internal/service/auth"
	"github.com/recite-app/recite-api/internal/store"
)

// fakeUserStore implements store.UserStore with function fields.
type fakeUserStore struct {
	CreateFunc     func(ctx context.Context, user *domain.User) error
	GetByEmailFunc func(ctx context.Context, email string) (*domain.User, error)
}

var _ store.UserStore = (*fakeUserStore)(nil)

func (f *fakeUserStore) Create(ctx context.Context, user *domain.User) error {
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, user)
	}
	return nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return nil, store.ErrUserNotFound
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if f.GetByEmailFunc != nil {
		return f.GetByEmailFunc(ctx, email)
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUserStore) Update(ctx context.Context, user *domain.User) error {
	return errors.New("not implemented")
}

func (f *fakeUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	return errors.New("not implemented")
}

func (f *fakeUserStore) WithTx(tx *sql.Tx) store.UserStore { return f }

// fakePasswordVerifier implements auth.PasswordVerifier.
type fakePasswordVerifier struct {
	err error
}

func (f *fakePasswordVerifier) Compare(hashedPassword, password string) error {
	return f.err
}

func newAuthHandlerForTest(userStore store.UserStore, verifier auth.PasswordVerifier) *AuthHandler {
	jwtService := auth.NewMockJWTService()
	return NewAuthHandler(userStore, jwtService, verifier, config.AuthConfig{
		TokenLifetimeMinutes: 60,
	})
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	handler(recorder, req)
	return recorder
}

func TestRegisterSuccess(t *testing.T) {
	t.Parallel()

	handler := newAuthHandlerForTest(&fakeUserStore{}, &fakePasswordVerifier{})

	recorder := postJSON(t, handler.Register, "/auth/register", RegisterRequest{
		Email:    "user@example.com",
		Password: "correct-horse-battery",
	})

	require.Equal(t, http.StatusCreated, recorder.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.NotEqual(t, uuid.Nil, resp.UserID)
	assert.Equal(t, "mock-jwt-token", resp.AccessToken)
	assert.Equal(t, "mock-refresh-token", resp.RefreshToken)
	assert.NotEmpty(t, resp.ExpiresAt)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	userStore := &fakeUserStore{
		CreateFunc: func(ctx context.Context, user *domain.User) error {
			return store.ErrEmailExists
		},
	}
	handler := newAuthHandlerForTest(userStore, &fakePasswordVerifier{})

	recorder := postJSON(t, handler.Register, "/auth/register", RegisterRequest{
		Email:    "user@example.com",
		Password: "correct-horse-battery",
	})

	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	t.Parallel()

	handler := newAuthHandlerForTest(&fakeUserStore{}, &fakePasswordVerifier{})

	recorder := postJSON(t, handler.Register, "/auth/register", RegisterRequest{
		Email:    "user@example.com",
		Password: "short",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	userStore := &fakeUserStore{
		GetByEmailFunc: func(ctx context.Context, email string) (*domain.User, error) {
			return &domain.User{
				ID:             userID,
				Email:          email,
				HashedPassword: "stored-hash",
			}, nil
		},
	}
	handler := newAuthHandlerForTest(userStore, &fakePasswordVerifier{})

	recorder := postJSON(t, handler.Login, "/auth/login", LoginRequest{
		Email:    "user@example.com",
		Password: "correct-horse-battery",
	})

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Equal(t, userID, resp.UserID)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()

	userStore := &fakeUserStore{
		GetByEmailFunc: func(ctx context.Context, email string) (*domain.User, error) {
			return &domain.User{
				ID:             uuid.New(),
				Email:          email,
				HashedPassword: "stored-hash",
			}, nil
		},
	}
	handler := newAuthHandlerForTest(userStore, &fakePasswordVerifier{err: errors.New("mismatch")})

	recorder := postJSON(t, handler.Login, "/auth/login", LoginRequest{
		Email:    "user@example.com",
		Password: "wrong-password",
	})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	t.Parallel()

	handler := newAuthHandlerForTest(&fakeUserStore{}, &fakePasswordVerifier{})

	recorder := postJSON(t, handler.Login, "/auth/login", LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever-password",
	})

	// Unknown email and wrong password are indistinguishable to the client.
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRefreshTokenSuccess(t *testing.T) {
	t.Parallel()

	handler := newAuthHandlerForTest(&fakeUserStore{}, &fakePasswordVerifier{})

	recorder := postJSON(t, handler.RefreshToken, "/auth/refresh", RefreshTokenRequest{
		RefreshToken: "valid-refresh-token",
	})

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp RefreshTokenResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEmpty(t, resp.ExpiresAt)
}

func TestRefreshTokenInvalid(t *testing.T) {
	t.Parallel()

	jwtService := auth.NewMockJWTService().
		WithValidateRefreshTokenFunc(func(ctx context.Context, tokenString string) (*auth.Claims, error) {
			return nil, auth.ErrInvalidRefreshToken
		})
	handler := NewAuthHandler(&fakeUserStore{}, jwtService, &fakePasswordVerifier{}, config.AuthConfig{
		TokenLifetimeMinutes: 60,
	})

	recorder := postJSON(t, handler.RefreshToken, "/auth/refresh", RefreshTokenRequest{
		RefreshToken: "garbage",
	})

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRefreshTokenMissing(t *testing.T) {
	t.Parallel()

	handler := newAuthHandlerForTest(&fakeUserStore{}, &fakePasswordVerifier{})

	recorder := postJSON(t, handler.RefreshToken, "/auth/refresh", RefreshTokenRequest{})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
