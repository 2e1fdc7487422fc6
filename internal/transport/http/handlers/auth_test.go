package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"budget-buddy/internal/config"
	"budget-buddy/internal/models"
	"budget-buddy/internal/service"
	"budget-buddy/internal/sessions"
	"budget-buddy/internal/storage"
	"budget-buddy/mocks"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:    "handler-access-secret",
		RefreshSecret:   "handler-refresh-secret",
		AccessTokenTTL:  40 * time.Minute,
		RefreshTokenTTL: 168 * time.Hour,
		Issuer:          "budget-buddy",
		BcryptCost:      bcrypt.MinCost,
	}
}

func newEnv(t *testing.T) (*Handlers, *mocks.MockStorage, *mocks.MockRegistry, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	reg := mocks.NewMockRegistry(ctrl)
	svc := service.New(st, reg, testCfg())
	return New(svc, false), st, reg, ctrl
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func cookieByName(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %q not set", name)
	return nil
}

// signRefresh собирает refresh-токен тем же способом, что и сервис.
func signRefresh(t *testing.T, uid uuid.UUID, ttl time.Duration) string {
	t.Helper()

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   uid.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    testCfg().Issuer,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(testCfg().RefreshSecret))
	require.NoError(t, err)
	return signed
}

func TestRegisterUser_Created_SetsBothCookies(t *testing.T) {
	t.Parallel()

	h, st, reg, ctrl := newEnv(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "alice@example.com").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil)
	reg.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	rr := doJSON(t, h.RegisterUser, http.MethodPost, "/auth/register",
		map[string]string{"email": "alice@example.com", "password": "pw123456"})

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp struct {
		UserID  string `json:"userId"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "User registered successfully", resp.Message)
	_, err := uuid.Parse(resp.UserID)
	require.NoError(t, err)

	access := cookieByName(t, rr, "accessToken")
	refresh := cookieByName(t, rr, "refreshToken")

	for _, c := range []*http.Cookie{access, refresh} {
		require.NotEmpty(t, c.Value)
		require.True(t, c.HttpOnly)
		require.Equal(t, "/", c.Path)
		require.Equal(t, http.SameSiteStrictMode, c.SameSite)
		require.False(t, c.Secure) // secureCookies=false в этом окружении
		require.Positive(t, c.MaxAge)
	}

	// MaxAge следует TTL своего класса токена.
	require.InDelta(t, int(testCfg().AccessTokenTTL.Seconds()), access.MaxAge, 5)
	require.InDelta(t, int(testCfg().RefreshTokenTTL.Seconds()), refresh.MaxAge, 5)
}

func TestRegisterUser_SecureCookies_WhenEnabled(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := mocks.NewMockStorage(ctrl)
	reg := mocks.NewMockRegistry(ctrl)
	h := New(service.New(st, reg, testCfg()), true)

	st.EXPECT().UserByEmail(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil)
	reg.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	rr := doJSON(t, h.RegisterUser, http.MethodPost, "/auth/register",
		map[string]string{"email": "bob@example.com", "password": "pw123456"})

	require.Equal(t, http.StatusCreated, rr.Code)
	require.True(t, cookieByName(t, rr, "accessToken").Secure)
	require.True(t, cookieByName(t, rr, "refreshToken").Secure)
}

func TestRegisterUser_DuplicateEmail_400(t *testing.T) {
	t.Parallel()

	h, st, _, ctrl := newEnv(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "alice@example.com").
		Return(&models.User{ID: uuid.New(), Email: "alice@example.com"}, nil)

	rr := doJSON(t, h.RegisterUser, http.MethodPost, "/auth/register",
		map[string]string{"email": "alice@example.com", "password": "pw123456"})

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "email_taken")
	require.Empty(t, rr.Result().Cookies())
}

func TestRegisterUser_MalformedBody_400(t *testing.T) {
	t.Parallel()

	h, _, _, ctrl := newEnv(t)
	defer ctrl.Finish()

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{broken"))
	rr := httptest.NewRecorder()
	h.RegisterUser(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "invalid_argument")
}

func TestRegisterUser_UnknownField_400(t *testing.T) {
	t.Parallel()

	h, _, _, ctrl := newEnv(t)
	defer ctrl.Finish()

	rr := doJSON(t, h.RegisterUser, http.MethodPost, "/auth/register",
		map[string]string{"email": "a@b.com", "password": "pw123456", "isAdmin": "true"})

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "invalid_argument")
}

func TestLoginUser_OK_ReissuesCookies(t *testing.T) {
	t.Parallel()

	h, st, reg, ctrl := newEnv(t)
	defer ctrl.Finish()

	pw := "pw123456"
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{ID: uuid.New(), Email: "alice@example.com", PasswordHash: string(hash)}

	st.EXPECT().UserByEmail(gomock.Any(), user.Email).Return(user, nil)
	reg.EXPECT().Put(gomock.Any(), user.ID, gomock.Any(), gomock.Any()).Return(nil)

	rr := doJSON(t, h.LoginUser, http.MethodPost, "/auth/login",
		map[string]string{"email": user.Email, "password": pw})

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		UserID  string `json:"userId"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, user.ID.String(), resp.UserID)
	require.Equal(t, "Logged in successfully", resp.Message)

	require.NotEmpty(t, cookieByName(t, rr, "accessToken").Value)
	require.NotEmpty(t, cookieByName(t, rr, "refreshToken").Value)
}

func TestLoginUser_UnknownEmailAndWrongPassword_SameResponse(t *testing.T) {
	t.Parallel()

	h, st, _, ctrl := newEnv(t)
	defer ctrl.Finish()

	// Неизвестный email.
	st.EXPECT().UserByEmail(gomock.Any(), "ghost@example.com").
		Return(nil, storage.ErrNotFound)
	rr1 := doJSON(t, h.LoginUser, http.MethodPost, "/auth/login",
		map[string]string{"email": "ghost@example.com", "password": "pw123456"})

	// Неверный пароль.
	hash, err := bcrypt.GenerateFromPassword([]byte("pw123456"), bcrypt.MinCost)
	require.NoError(t, err)
	st.EXPECT().UserByEmail(gomock.Any(), "alice@example.com").
		Return(&models.User{ID: uuid.New(), Email: "alice@example.com", PasswordHash: string(hash)}, nil)
	rr2 := doJSON(t, h.LoginUser, http.MethodPost, "/auth/login",
		map[string]string{"email": "alice@example.com", "password": "WRONG123"})

	require.Equal(t, http.StatusBadRequest, rr1.Code)
	require.Equal(t, rr1.Code, rr2.Code)
	require.Equal(t, rr1.Body.String(), rr2.Body.String())
}

func TestLogoutUser_NoCookie_StillClearsAnd200(t *testing.T) {
	t.Parallel()

	h, _, _, ctrl := newEnv(t)
	defer ctrl.Finish()

	rr := doJSON(t, h.LogoutUser, http.MethodPost, "/auth/logout", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Logged out successfully")

	// Обе cookie истекают немедленно.
	require.Negative(t, cookieByName(t, rr, "accessToken").MaxAge)
	require.Negative(t, cookieByName(t, rr, "refreshToken").MaxAge)
}

func TestLogoutUser_ValidCookie_DeletesRegistryEntry(t *testing.T) {
	t.Parallel()

	h, _, reg, ctrl := newEnv(t)
	defer ctrl.Finish()

	uid := uuid.New()
	rt := signRefresh(t, uid, time.Hour)

	reg.EXPECT().Delete(gomock.Any(), uid).Return(nil)

	rr := doJSON(t, h.LogoutUser, http.MethodPost, "/auth/logout", nil,
		&http.Cookie{Name: "refreshToken", Value: rt})

	require.Equal(t, http.StatusOK, rr.Code)
}

func TestLogoutUser_RegistryError_500_CookiesStillCleared(t *testing.T) {
	t.Parallel()

	h, _, reg, ctrl := newEnv(t)
	defer ctrl.Finish()

	uid := uuid.New()
	rt := signRefresh(t, uid, time.Hour)

	reg.EXPECT().Delete(gomock.Any(), uid).Return(errors.New("redis down"))

	rr := doJSON(t, h.LogoutUser, http.MethodPost, "/auth/logout", nil,
		&http.Cookie{Name: "refreshToken", Value: rt})

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, rr.Body.String(), "internal")
	require.Negative(t, cookieByName(t, rr, "refreshToken").MaxAge)
}

func TestRefreshToken_MissingCookie_401(t *testing.T) {
	t.Parallel()

	h, _, _, ctrl := newEnv(t)
	defer ctrl.Finish()

	rr := doJSON(t, h.RefreshToken, http.MethodPost, "/auth/refresh", nil)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "unauthenticated")
}

func TestRefreshToken_OK_SetsOnlyAccessCookie(t *testing.T) {
	t.Parallel()

	h, _, reg, ctrl := newEnv(t)
	defer ctrl.Finish()

	uid := uuid.New()
	rt := signRefresh(t, uid, time.Hour)

	reg.EXPECT().Get(gomock.Any(), uid).Return(rt, true, nil)

	rr := doJSON(t, h.RefreshToken, http.MethodPost, "/auth/refresh", nil,
		&http.Cookie{Name: "refreshToken", Value: rt})

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Access token refreshed")

	// Только access-cookie: refresh не ротируется и не переустанавливается.
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "accessToken", cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
}

func TestRefreshToken_Expired_401_TokenExpired(t *testing.T) {
	t.Parallel()

	h, _, _, ctrl := newEnv(t)
	defer ctrl.Finish()

	rt := signRefresh(t, uuid.New(), -time.Minute)

	rr := doJSON(t, h.RefreshToken, http.MethodPost, "/auth/refresh", nil,
		&http.Cookie{Name: "refreshToken", Value: rt})

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "token_expired")
}

func TestRefreshToken_DisplacedByNewerSession_401(t *testing.T) {
	t.Parallel()

	h, _, reg, ctrl := newEnv(t)
	defer ctrl.Finish()

	uid := uuid.New()
	oldRT := signRefresh(t, uid, time.Hour)
	newRT := signRefresh(t, uid, 2*time.Hour)

	reg.EXPECT().Get(gomock.Any(), uid).Return(newRT, true, nil)

	rr := doJSON(t, h.RefreshToken, http.MethodPost, "/auth/refresh", nil,
		&http.Cookie{Name: "refreshToken", Value: oldRT})

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "unauthenticated")
}

// --- In-memory фейки для сквозного сценария. ---

type memStorage struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
}

func newMemStorage() *memStorage { return &memStorage{byEmail: make(map[string]*models.User)} }

func (m *memStorage) SaveUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return storage.ErrAlreadyExists
	}
	cp := *u
	m.byEmail[u.Email] = &cp
	return nil
}

func (m *memStorage) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStorage) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStorage) MonobankTokenByUserID(ctx context.Context, id uuid.UUID) (string, error) {
	u, err := m.UserByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.MonobankToken, nil
}

func (m *memStorage) Close() {}

type memRegistry struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]string
}

func newMemRegistry() *memRegistry { return &memRegistry{tokens: make(map[uuid.UUID]string)} }

func (m *memRegistry) Put(_ context.Context, uid uuid.UUID, token string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[uid] = token
	return nil
}

func (m *memRegistry) Get(_ context.Context, uid uuid.UUID) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[uid]
	return token, ok, nil
}

func (m *memRegistry) Delete(_ context.Context, uid uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, uid)
	return nil
}

func (m *memRegistry) Close() error { return nil }

var _ storage.Storage = (*memStorage)(nil)
var _ sessions.Registry = (*memRegistry)(nil)

// Сквозной сценарий: регистрация → refresh работает → logout →
// тот же refresh-токен больше не принимается.
func TestSessionLifecycle_RegisterRefreshLogoutRefresh(t *testing.T) {
	t.Parallel()

	reg := newMemRegistry()
	svc := service.New(newMemStorage(), reg, testCfg())
	h := New(svc, false)

	// 1. Регистрация.
	rr := doJSON(t, h.RegisterUser, http.MethodPost, "/auth/register",
		map[string]string{"email": "alice@example.com", "password": "pw123456"})
	require.Equal(t, http.StatusCreated, rr.Code)

	refresh := cookieByName(t, rr, "refreshToken")

	// 2. Refresh по живой сессии.
	rr = doJSON(t, h.RefreshToken, http.MethodPost, "/auth/refresh", nil, refresh)
	require.Equal(t, http.StatusOK, rr.Code)

	// 3. Logout удаляет запись реестра.
	rr = doJSON(t, h.LogoutUser, http.MethodPost, "/auth/logout", nil, refresh)
	require.Equal(t, http.StatusOK, rr.Code)

	// 4. Криптографически валидный, но отозванный refresh отклоняется.
	rr = doJSON(t, h.RefreshToken, http.MethodPost, "/auth/refresh", nil, refresh)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "unauthenticated")
}

// Повторный вход вытесняет предыдущую сессию: старый refresh-токен
// перестаёт приниматься, новый работает.
func TestSessionLifecycle_SecondLoginDisplacesFirst(t *testing.T) {
	t.Parallel()

	svc := service.New(newMemStorage(), newMemRegistry(), testCfg())
	h := New(svc, false)

	rr := doJSON(t, h.RegisterUser, http.MethodPost, "/auth/register",
		map[string]string{"email": "bob@example.com", "password": "pw123456"})
	require.Equal(t, http.StatusCreated, rr.Code)
	firstRefresh := cookieByName(t, rr, "refreshToken")

	// Вторая сессия: между входами проходит секунда, чтобы iat/exp
	// токенов отличались.
	time.Sleep(1100 * time.Millisecond)
	rr = doJSON(t, h.LoginUser, http.MethodPost, "/auth/login",
		map[string]string{"email": "bob@example.com", "password": "pw123456"})
	require.Equal(t, http.StatusOK, rr.Code)
	secondRefresh := cookieByName(t, rr, "refreshToken")
	require.NotEqual(t, firstRefresh.Value, secondRefresh.Value)

	rr = doJSON(t, h.RefreshToken, http.MethodPost, "/auth/refresh", nil, firstRefresh)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, h.RefreshToken, http.MethodPost, "/auth/refresh", nil, secondRefresh)
	require.Equal(t, http.StatusOK, rr.Code)
}

