package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"budget-buddy/internal/models"
	"budget-buddy/internal/pkg/log"
	"budget-buddy/internal/pkg/redact"
	"budget-buddy/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RegisterUser регистрирует нового пользователя.
// monobankToken опционален и сохраняется в БД, не попадая в выборки
// по умолчанию.
func (s *Service) RegisterUser(ctx context.Context, email, password, monobankToken string) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.auth.RegisterUser"

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if err := validatePassword(password); err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, normEmail)
	if err == nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:            uuid.New(),
		Email:         normEmail,
		PasswordHash:  hashedPassword,
		MonobankToken: monobankToken,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		// Гонка двух регистраций одного email: нарушение уникальности
		// при вставке эквивалентно занятому email, а не ошибке сервера.
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_registered",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("email", redact.Email(user.Email)),
	)

	return s.openSession(ctx, user.ID)
}

// LoginUser выполняет вход по email+пароль.
// Неизвестный email и неверный пароль возвращают одну и ту же ошибку,
// чтобы не раскрывать, какая часть пары не совпала.
func (s *Service) LoginUser(ctx context.Context, email, password string) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.auth.LoginUser"

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if len(password) == 0 {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if !checkPassword(user.PasswordHash, password) {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	return s.openSession(ctx, user.ID)
}

// LogoutUser завершает сессию по refresh-токену из cookie.
// Невалидный или отсутствующий токен — no-op: cookie всё равно будут
// очищены транспортом. Ошибка реестра пробрасывается, иначе захваченный
// refresh-токен остался бы пригодным для выпуска новых access-токенов.
func (s *Service) LogoutUser(ctx context.Context, refreshToken string) error {
	const op = "service.auth.LogoutUser"

	if refreshToken == "" {
		return nil
	}

	uid, _, err := s.validateToken(refreshToken, []byte(s.cfg.RefreshSecret))
	if err != nil {
		log.From(ctx).Warn("logout_token_rejected",
			slog.String("op", op),
		)
		return nil
	}

	if err := s.registry.Delete(ctx, uid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("session_revoked",
		slog.String("op", op),
		slog.String("user_id", uid.String()),
	)

	return nil
}

// RefreshAccessToken выпускает новый access-токен по refresh-токену.
// Токен обязан совпадать с текущей записью реестра для своего subject:
// это отсекает refresh-токены вытесненных повторным входом сессий.
// Сам refresh-токен не ротируется.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.auth.RefreshAccessToken"

	lg := log.From(ctx)

	uid, refreshExp, err := s.validateToken(refreshToken, []byte(s.cfg.RefreshSecret))
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	current, ok, err := s.registry.Get(ctx, uid)
	if err != nil {
		lg.Error("registry_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if !ok || subtle.ConstantTimeCompare([]byte(current), []byte(refreshToken)) != 1 {
		lg.Warn("refresh_displaced_or_revoked",
			slog.String("op", op),
			slog.String("user_id", uid.String()),
		)
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	now := time.Now().UTC()
	accessToken, err := s.generateAccessToken(ctx, uid, now)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  now.Add(s.cfg.AccessTokenTTL),
		RefreshExpiresAt: refreshExp,
	}, uid, nil
}

// openSession выпускает пару токенов и регистрирует сессию.
// Ошибка записи в реестр проваливает всю операцию: никаких cookie
// для незарегистрированной сессии.
func (s *Service) openSession(ctx context.Context, userID uuid.UUID) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.auth.openSession"

	now := time.Now().UTC()

	accessToken, err := s.generateAccessToken(ctx, userID, now)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := s.generateRefreshToken(ctx, userID, now)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.registry.Put(ctx, userID, refreshToken, s.cfg.RefreshTokenTTL); err != nil {
		log.From(ctx).Error("registry_put_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  now.Add(s.cfg.AccessTokenTTL),
		RefreshExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}, userID, nil
}

// hashPassword хэширует пароль с помощью bcrypt.
// Стоимость конфигурируема (auth.bcrypt_cost); соль и стоимость
// зашиты в сам дайджест, поэтому проверка самоописываемая.
func (s *Service) hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	cost := s.cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
// Несовпадение — это false, а не ошибка; bcrypt не даёт тайминговой
// утечки по совпавшему префиксу.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateEmail проверяет базовый формат email и обрезает пробелы снаружи.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет минимальные требования к паролю.
// Политика: непустой, длина >= 8 символов.
func validatePassword(pw string) error {
	const op = "service.auth.validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if len([]rune(pw)) < 8 {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}
