package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"warden/config"
	deliverycontext "warden/internal/delivery/context"
	"warden/internal/delivery/http/middleware"
	"warden/internal/delivery/http/router"
	"warden/internal/delivery/http/router/handler"
	"warden/internal/domain/entity"
	"warden/internal/domain/service"
	"warden/internal/infra/auth"
	"warden/internal/infra/persistence/memory"
	"warden/internal/usecase/impl"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testCode = "482913"

type fixedCode struct{}

func (fixedCode) Generate(int) (string, error) { return testCode, nil }

type capturingSender struct {
	mu     sync.Mutex
	events []*service.CodeDeliveryEvent
}

func (s *capturingSender) SendCode(_ context.Context, event *service.CodeDeliveryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)

	return nil
}

func (s *capturingSender) Close() error { return nil }

type apiFixture struct {
	e      *echo.Echo
	users  *memory.UserRepository
	hasher service.PasswordHasher
	sender *capturingSender
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	cfg := &config.Config{
		SecretKey: config.SecretKeyConfig{Access: "access-secret", Refresh: "refresh-secret"},
		Token:     &config.TokenConfig{AccessTTL: 15 * time.Minute, RefreshTTL: 24 * time.Hour},
		Auth:      &config.AuthConfig{BcryptCost: bcrypt.MinCost, RefreshTokenRegistry: true},
		OTP:       &config.OTPConfig{Length: 6, TTL: 10 * time.Minute, ResendCooldown: time.Minute, MaxAttempts: 5},
	}
	cfg.HTTP.Cookie = config.CookieConfig{Path: "/", AccessMaxAge: time.Hour, RefreshMaxAge: 7 * 24 * time.Hour}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := memory.NewUserRepository()
	tokens := memory.NewRefreshTokenRepository()
	txManager := memory.NewTransactionManager(users, tokens)
	otpStore := memory.NewOTPChallengeStore(memory.OTPStoreParams{Config: cfg, Logger: logger})
	tokenSvc, err := auth.NewJWTService(cfg)
	require.NoError(t, err)
	hasher := auth.NewBcryptHasher(cfg)
	otpManager := auth.NewOTPManager(auth.OTPManagerParams{Config: cfg, Store: otpStore, Logger: logger, Generator: fixedCode{}})
	sender := &capturingSender{}

	accountUC := impl.NewAccountService(impl.AccountServiceParams{
		TxManager:        txManager,
		UserRepo:         users,
		RefreshTokenRepo: tokens,
		Hasher:           hasher,
		TokenService:     tokenSvc,
		OTPManager:       otpManager,
		CodeSender:       sender,
		Config:           cfg,
		Logger:           logger,
	})
	userAdminUC := impl.NewUserAdminService(impl.UserAdminServiceParams{
		TxManager:  txManager,
		UserRepo:   users,
		OTPManager: otpManager,
		Logger:     logger,
	})
	guard := impl.NewGuardService(impl.GuardServiceParams{TokenService: tokenSvc, Logger: logger})

	routes := router.NewRouter(router.RouterParams{
		AccountHandler: handler.NewAccountHandler(handler.AccountHandlerParams{AccountUC: accountUC, Config: cfg, Logger: logger}),
		UserHandler:    handler.NewUserHandler(handler.UserHandlerParams{UserAdminUC: userAdminUC, Logger: logger}),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthMiddlewareParams{Guard: guard}),
	})

	return &apiFixture{
		e:      NewEcho(cfg, logger, routes),
		users:  users,
		hasher: hasher,
		sender: sender,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Details string `json:"details"`
	} `json:"error"`
}

func (f *apiFixture) do(t *testing.T, method, path, body string, mutate ...func(*http.Request)) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, m := range mutate {
		m(req)
	}

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())

	return rec, env
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+token) }
}

func withCookie(name, value string) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: name, Value: value}) }
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}

	return nil
}

func (f *apiFixture) login(t *testing.T, email, password string) (*httptest.ResponseRecorder, handler.TokenView) {
	t.Helper()

	rec, env := f.do(t, http.MethodPost, "/users/login", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tokens handler.TokenView
	require.NoError(t, json.Unmarshal(env.Data, &tokens))

	return rec, tokens
}

func (f *apiFixture) seed(t *testing.T, email, password string, role entity.Role) {
	t.Helper()

	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), &entity.User{Email: email, PasswordHash: hash, Role: role, Verified: true}))
}

func TestAPI_RegistrationFlow(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.do(t, http.MethodPost, "/users/register", `{"email":"alice@example.com","password":"pass123","firstName":"Alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
	require.Len(t, f.sender.events, 1)
	assert.Equal(t, testCode, f.sender.events[0].Code)

	rec, env = f.do(t, http.MethodPost, "/users/login", `{"email":"alice@example.com","password":"pass123"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	rec, env = f.do(t, http.MethodPost, "/users/verify-otp", `{"email":"alice@example.com","otp":"482914"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "OTP_MISMATCH", env.Error.Code)

	rec, _ = f.do(t, http.MethodPost, "/users/verify-otp", `{"email":"alice@example.com","otp":"482913"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(t, http.MethodPost, "/users/verify-otp", `{"email":"alice@example.com","otp":"482913"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "OTP_NOT_FOUND", env.Error.Code)

	_, tokens := f.login(t, "alice@example.com", "pass123")

	rec, env = f.do(t, http.MethodPatch, "/users/update-password", `{"oldPassword":"nope","newPassword":"pass456"}`, withBearer(tokens.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	rec, _ = f.do(t, http.MethodPatch, "/users/update-password", `{"oldPassword":"pass123","newPassword":"pass456"}`, withBearer(tokens.AccessToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	f.login(t, "alice@example.com", "pass456")
}

func TestAPI_LoginSetsCookies(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "bob@example.com", "secret1", entity.RoleUser)

	rec, tokens := f.login(t, "bob@example.com", "secret1")

	access := cookieNamed(rec, middleware.AccessTokenCookie)
	require.NotNil(t, access)
	assert.Equal(t, tokens.AccessToken, access.Value)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, access.SameSite)
	assert.Equal(t, 3600, access.MaxAge)

	refresh := cookieNamed(rec, middleware.RefreshTokenCookie)
	require.NotNil(t, refresh)
	assert.Equal(t, tokens.RefreshToken, refresh.Value)
	assert.Equal(t, http.SameSiteStrictMode, refresh.SameSite)
	assert.Equal(t, 7*24*3600, refresh.MaxAge)
}

func TestAPI_TokenExtraction(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "carol@example.com", "secret1", entity.RoleUser)
	_, tokens := f.login(t, "carol@example.com", "secret1")

	rec, env := f.do(t, http.MethodGet, "/users/me", "", withBearer(tokens.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "carol@example.com")
	assert.NotContains(t, string(env.Data), "passwordHash")

	rec, _ = f.do(t, http.MethodGet, "/users/me", "", withCookie(middleware.AccessTokenCookie, tokens.AccessToken), withBearer("garbage"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(t, http.MethodGet, "/users/me", "", withCookie(middleware.AccessTokenCookie, "garbage"), withBearer(tokens.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)

	rec, env = f.do(t, http.MethodGet, "/users/me", "", withBearer(tokens.RefreshToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)

	rec, _ = f.do(t, http.MethodGet, "/users/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_AdminRoutes(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "user@example.com", "secret1", entity.RoleUser)
	f.seed(t, "admin@example.com", "secret1", entity.RoleAdmin)
	_, userTokens := f.login(t, "user@example.com", "secret1")
	_, adminTokens := f.login(t, "admin@example.com", "secret1")

	rec, env := f.do(t, http.MethodGet, "/users", "", withBearer(userTokens.AccessToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	rec, env = f.do(t, http.MethodGet, "/users?sortBy=createdAt&sortOrder=asc&limit=1", "", withBearer(adminTokens.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page handler.UserPageView
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.EqualValues(t, 2, page.Total)
	assert.Len(t, page.Users, 1)

	rec, env = f.do(t, http.MethodGet, "/users?sortBy=height", "", withBearer(adminTokens.AccessToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	user, err := f.users.FindByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)

	rec, env = f.do(t, http.MethodPatch, "/users/update/"+user.ID.String(), `{"role":"ADMIN","lastName":"Promoted"}`, withBearer(adminTokens.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"role":"ADMIN"`)

	rec, _ = f.do(t, http.MethodDelete, "/users/"+user.ID.String(), "", withBearer(userTokens.AccessToken))
	assert.Equal(t, http.StatusForbidden, rec.Code, "the old access token still carries USER")

	rec, _ = f.do(t, http.MethodDelete, "/users/"+user.ID.String(), "", withBearer(adminTokens.AccessToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(t, http.MethodPost, "/users/refresh-token", `{"refreshToken":"`+userTokens.RefreshToken+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEqual(t, "", env.Error.Code)

	rec, _ = f.do(t, http.MethodDelete, "/users/not-a-uuid", "", withBearer(adminTokens.AccessToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_RefreshAndLogout(t *testing.T) {
	f := newAPIFixture(t)
	f.seed(t, "dan@example.com", "secret1", entity.RoleUser)
	_, tokens := f.login(t, "dan@example.com", "secret1")

	rec, env := f.do(t, http.MethodPost, "/users/refresh-token", "", withCookie(middleware.RefreshTokenCookie, tokens.RefreshToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rotated handler.TokenView
	require.NoError(t, json.Unmarshal(env.Data, &rotated))
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)
	require.NotNil(t, cookieNamed(rec, middleware.AccessTokenCookie))

	rec, env = f.do(t, http.MethodPost, "/users/refresh-token", `{"refreshToken":"`+tokens.RefreshToken+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "REFRESH_TOKEN_REVOKED", env.Error.Code)

	rec, _ = f.do(t, http.MethodPost, "/users/logout", "", withCookie(middleware.RefreshTokenCookie, rotated.RefreshToken))
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := cookieNamed(rec, middleware.RefreshTokenCookie)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
	assert.Empty(t, cleared.Value)

	rec, _ = f.do(t, http.MethodPost, "/users/refresh-token", `{"refreshToken":"`+rotated.RefreshToken+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = f.do(t, http.MethodPost, "/users/refresh-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)
}

func TestAPI_ValidationAndRequestID(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.do(t, http.MethodPost, "/users/register", `{"email":"not-an-email","password":""}`, func(r *http.Request) {
		r.Header.Set(deliverycontext.HeaderXRequestID, "req-123")
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Contains(t, env.Error.Details, "email must be a valid email address")
	assert.Contains(t, env.Error.Details, "password is required")
	assert.Equal(t, "req-123", rec.Header().Get(deliverycontext.HeaderXRequestID))

	rec, env = f.do(t, http.MethodPost, "/users/login", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
	assert.NotEmpty(t, rec.Header().Get(deliverycontext.HeaderXRequestID))

	rec, env = f.do(t, http.MethodPost, "/users/resend-otp", `{"email":"ghost@example.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Empty(t, f.sender.events)
}

func TestAPI_Health(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}
