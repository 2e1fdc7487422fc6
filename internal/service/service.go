// service содержит бизнес-логику аутентификации Budget Buddy:
// регистрацию/вход пользователей, выпуск/проверку пары токенов
// и управление жизненным циклом сессии через реестр (Redis)
// и хранилище учётных данных (Postgres).
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданные хранилище и реестр потокобезопасны.
//   - Конкурентные Login одного пользователя гоняются на Put в реестре;
//     побеждает последняя запись, дополнительной блокировки не требуется.
//   - Ошибки возвращаются сентинелами и далее маппятся HTTP-слоем
//     (см. transport/http/httperr).
package service

import (
	"errors"

	"budget-buddy/internal/config"
	"budget-buddy/internal/sessions"
	"budget-buddy/internal/storage"
)

var (
	// ErrInvalidCredentials — пара email/пароль неверна или пользователь
	// не найден. Неизвестный email и неверный пароль намеренно
	// неразличимы. Транспорт: 400.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен некорректен по формату/подписи либо не
	// совпадает с записью реестра (вытесненная сессия). Транспорт: 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк; клиенту следует
	// обновить токен, а не перелогиниваться. Транспорт: 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrEmailTaken — e-mail уже занят другим пользователем. Транспорт: 400.
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidEmail — e-mail имеет некорректный формат. Транспорт: 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль короче минимальной длины. Транспорт: 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. Транспорт: 400.
	ErrEmptyPassword = errors.New("password is empty")
)

// Service описывает бизнес-логику auth-подсистемы.
type Service struct {
	storage  storage.Storage
	registry sessions.Registry
	cfg      config.AuthConfig
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, registry sessions.Registry, cfg config.AuthConfig) *Service {
	return &Service{
		storage:  storage,
		registry: registry,
		cfg:      cfg,
	}
}
