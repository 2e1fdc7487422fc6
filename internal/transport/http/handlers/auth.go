package handlers

import (
	"net/http"

	"budget-buddy/internal/service"
	"budget-buddy/internal/transport/http/httperr"
)

// Входные/выходные модели под REST.
type registerRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	MonobankToken string `json:"monobankToken,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// RegisterUser — POST /auth/register.
// Успех: 201, оба token-cookie установлены.
// Занятый email: 400 (включая гонку на unique-констрейнте).
func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	pair, userID, err := h.svc.RegisterUser(r.Context(), in.Email, in.Password, in.MonobankToken)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	h.setSessionCookies(w, pair)
	writeJSON(w, http.StatusCreated, authResponse{
		UserID:  userID.String(),
		Message: "User registered successfully",
	})
}

// LoginUser — POST /auth/login.
// Успех: 200, оба token-cookie перевыпущены; запись реестра для
// пользователя перезаписана (предыдущая сессия вытеснена).
// Неизвестный email и неверный пароль неразличимы: 400.
func (h *Handlers) LoginUser(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	pair, userID, err := h.svc.LoginUser(r.Context(), in.Email, in.Password)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	h.setSessionCookies(w, pair)
	writeJSON(w, http.StatusOK, authResponse{
		UserID:  userID.String(),
		Message: "Logged in successfully",
	})
}

// LogoutUser — POST /auth/logout.
// Cookie очищаются безусловно, даже без валидной сессии; запись реестра
// для аутентифицированного пользователя удаляется, чтобы захваченный
// refresh-токен не годился для выпуска новых access-токенов.
// Ошибка реестра — 500: отвечать успехом при живой записи нельзя.
func (h *Handlers) LogoutUser(w http.ResponseWriter, r *http.Request) {
	var refreshToken string
	if c, err := r.Cookie(refreshCookieName); err == nil {
		refreshToken = c.Value
	}

	h.clearSessionCookies(w)

	if err := h.svc.LogoutUser(r.Context(), refreshToken); err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// RefreshToken — POST /auth/refresh.
// Проверяет refresh-cookie и её совпадение с реестром; выпускает только
// новый access-токен (refresh не ротируется). Просроченный refresh —
// 401 token_expired; вытесненный или подделанный — 401 unauthenticated.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(refreshCookieName)
	if err != nil || c.Value == "" {
		httperr.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	pair, userID, err := h.svc.RefreshAccessToken(r.Context(), c.Value)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	http.SetCookie(w, h.tokenCookie(accessCookieName, pair.AccessToken, pair.AccessExpiresAt))
	writeJSON(w, http.StatusOK, authResponse{
		UserID:  userID.String(),
		Message: "Access token refreshed",
	})
}
