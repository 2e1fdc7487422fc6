package handlers

import (
	"net/http"
	"time"

	"budget-buddy/internal/models"
)

// Имена cookie зафиксированы контрактом фронта.
const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

// tokenCookie собирает cookie с атрибутами безопасности:
// HttpOnly (недоступна скриптам), SameSite=Strict, Secure вне локального
// окружения, MaxAge = остаток TTL токена в секундах.
func (h *Handlers) tokenCookie(name, value string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
	}
}

// setSessionCookies доставляет оба токена клиенту.
func (h *Handlers) setSessionCookies(w http.ResponseWriter, pair *models.TokenPair) {
	http.SetCookie(w, h.tokenCookie(accessCookieName, pair.AccessToken, pair.AccessExpiresAt))
	http.SetCookie(w, h.tokenCookie(refreshCookieName, pair.RefreshToken, pair.RefreshExpiresAt))
}

// clearSessionCookies очищает оба токена на ответе.
func (h *Handlers) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteStrictMode,
			MaxAge:   -1,
		})
	}
}
