package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/grocery-shop/internal/auth"
	handlerHttp "github.com/vasiliy-maslov/grocery-shop/internal/handler/http"
)

type mockAuthService struct {
	registerFunc     func(ctx context.Context, email, password string) (*auth.User, error)
	loginFunc        func(ctx context.Context, email, password, deviceInfo string) (*auth.User, *auth.TokenPair, error)
	refreshFunc      func(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	logoutFunc       func(ctx context.Context, refreshToken string) error
	verifyAccessFunc func(ctx context.Context, accessToken string) (uuid.UUID, error)
}

func (m *mockAuthService) Register(ctx context.Context, email, password string) (*auth.User, error) {
	return m.registerFunc(ctx, email, password)
}

func (m *mockAuthService) Login(ctx context.Context, email, password, deviceInfo string) (*auth.User, *auth.TokenPair, error) {
	return m.loginFunc(ctx, email, password, deviceInfo)
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	return m.refreshFunc(ctx, refreshToken)
}

func (m *mockAuthService) Logout(ctx context.Context, refreshToken string) error {
	return m.logoutFunc(ctx, refreshToken)
}

func (m *mockAuthService) VerifyAccess(ctx context.Context, accessToken string) (uuid.UUID, error) {
	return m.verifyAccessFunc(ctx, accessToken)
}

const testAccessToken = "good-token"

// protectedRouter вешает RegisterRoutes за RequireAuth, как это делает
// боевой роутер. Токен testAccessToken соответствует userID.
func protectedRouter(userID uuid.UUID, register func(router chi.Router)) *chi.Mux {
	authSvc := &mockAuthService{
		verifyAccessFunc: func(ctx context.Context, accessToken string) (uuid.UUID, error) {
			if accessToken == testAccessToken {
				return userID, nil
			}
			return uuid.Nil, auth.ErrInvalidToken
		},
	}

	router := chi.NewRouter()
	router.Group(func(protected chi.Router) {
		protected.Use(handlerHttp.RequireAuth(authSvc))
		register(protected)
	})
	return router
}

func authedRequest(t *testing.T, method, target string, body io.Reader) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+testAccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func jsonBody(t *testing.T, payload any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func TestAuthHandler_Register_Success(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	svc := &mockAuthService{
		registerFunc: func(ctx context.Context, email, password string) (*auth.User, error) {
			return &auth.User{ID: userID, Email: email, CreatedAt: time.Now()}, nil
		},
	}

	router := chi.NewRouter()
	handlerHttp.NewAuthHandler(svc).RegisterRoutes(router)

	body := jsonBody(t, handlerHttp.RegisterRequest{Email: "test@example.com", Password: "Test1234!"})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp map[string]handlerHttp.UserResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, userID, resp["user"].ID)
	assert.Equal(t, "test@example.com", resp["user"].Email)
}

func TestAuthHandler_Register_EmailExists(t *testing.T) {
	svc := &mockAuthService{
		registerFunc: func(ctx context.Context, email, password string) (*auth.User, error) {
			return nil, auth.ErrEmailExists
		},
	}

	router := chi.NewRouter()
	handlerHttp.NewAuthHandler(svc).RegisterRoutes(router)

	body := jsonBody(t, handlerHttp.RegisterRequest{Email: "test@example.com", Password: "Test1234!"})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Contains(t, resp["error"], "User already exists")
}

func TestAuthHandler_Register_ValidationFailed(t *testing.T) {
	router := chi.NewRouter()
	handlerHttp.NewAuthHandler(&mockAuthService{}).RegisterRoutes(router)

	tests := []struct {
		name string
		req  handlerHttp.RegisterRequest
	}{
		{name: "bad_email", req: handlerHttp.RegisterRequest{Email: "not-an-email", Password: "Test1234!"}},
		{name: "short_password", req: handlerHttp.RegisterRequest{Email: "test@example.com", Password: "short"}},
		{name: "empty", req: handlerHttp.RegisterRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/register", jsonBody(t, tt.req))
			rr := httptest.NewRecorder()

			router.ServeHTTP(rr, req)
			require.Equal(t, http.StatusBadRequest, rr.Code)

			var resp handlerHttp.ValidationErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, "Validation failed", resp.Error)
			assert.NotEmpty(t, resp.Details)
		})
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	svc := &mockAuthService{
		loginFunc: func(ctx context.Context, email, password, deviceInfo string) (*auth.User, *auth.TokenPair, error) {
			return &auth.User{ID: userID, Email: email},
				&auth.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, nil
		},
	}

	router := chi.NewRouter()
	handlerHttp.NewAuthHandler(svc).RegisterRoutes(router)

	body := jsonBody(t, handlerHttp.LoginRequest{Email: "test@example.com", Password: "Test1234!"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "access", resp["access_token"])
	assert.Equal(t, "refresh", resp["refresh_token"])
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	svc := &mockAuthService{
		loginFunc: func(ctx context.Context, email, password, deviceInfo string) (*auth.User, *auth.TokenPair, error) {
			return nil, nil, auth.ErrInvalidCredentials
		},
	}

	router := chi.NewRouter()
	handlerHttp.NewAuthHandler(svc).RegisterRoutes(router)

	body := jsonBody(t, handlerHttp.LoginRequest{Email: "test@example.com", Password: "wrong-pass"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthHandler_Refresh(t *testing.T) {
	svc := &mockAuthService{
		refreshFunc: func(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
			require.Equal(t, "old-refresh", refreshToken)
			return &auth.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
		},
	}

	router := chi.NewRouter()
	handlerHttp.NewAuthHandler(svc).RegisterRoutes(router)

	body := jsonBody(t, handlerHttp.RefreshRequest{RefreshToken: "old-refresh"})
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", body)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "new-access", resp["access_token"])
	assert.Equal(t, "new-refresh", resp["refresh_token"])
}

func TestAuthHandler_Refresh_SessionInvalid(t *testing.T) {
	svc := &mockAuthService{
		refreshFunc: func(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
			return nil, auth.ErrInvalidSession
		},
	}

	router := chi.NewRouter()
	handlerHttp.NewAuthHandler(svc).RegisterRoutes(router)

	body := jsonBody(t, handlerHttp.RefreshRequest{RefreshToken: "stale"})
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", body)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	var revoked string
	svc := &mockAuthService{
		logoutFunc: func(ctx context.Context, refreshToken string) error {
			revoked = refreshToken
			return nil
		},
	}

	router := chi.NewRouter()
	handlerHttp.NewAuthHandler(svc).RegisterRoutes(router)

	body := jsonBody(t, handlerHttp.RefreshRequest{RefreshToken: "some-refresh"})
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", body)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "some-refresh", revoked)
}
