package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budget-buddy/internal/pkg/log"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Оба класса токенов — самодостаточные подписанные утверждения:
// subject = userID, iat, exp, iss. Access и refresh подписываются
// разными секретами, поэтому токен одного класса не проходит
// валидацию секретом другого.

// generateAccessToken генерирует access-токен.
func (s *Service) generateAccessToken(ctx context.Context, userID uuid.UUID, now time.Time) (string, error) {
	const op = "service.token.generateAccessToken"

	signed, err := s.signToken(userID, []byte(s.cfg.AccessSecret), now, s.cfg.AccessTokenTTL)
	if err != nil {
		log.From(ctx).Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// generateRefreshToken генерирует refresh-токен.
func (s *Service) generateRefreshToken(ctx context.Context, userID uuid.UUID, now time.Time) (string, error) {
	const op = "service.token.generateRefreshToken"

	signed, err := s.signToken(userID, []byte(s.cfg.RefreshSecret), now, s.cfg.RefreshTokenTTL)
	if err != nil {
		log.From(ctx).Error("refresh_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

func (s *Service) signToken(userID uuid.UUID, secret []byte, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    s.cfg.Issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(secret)
}

// validateToken проверяет подпись и срок действия токена секретом
// соответствующего класса и возвращает subject и момент истечения.
// Истёкший токен отличается от подделанного: ErrTokenExpired против
// ErrInvalidToken.
func (s *Service) validateToken(tokenStr string, secret []byte) (uuid.UUID, time.Time, error) {
	const op = "service.token.validateToken"

	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, time.Time{}, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return uuid.Nil, time.Time{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if !token.Valid {
		return uuid.Nil, time.Time{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return uid, claims.ExpiresAt.Time, nil
}

// ValidateAccessToken проверяет access-токен и возвращает ID пользователя.
// Используется для авторизации отдельных запросов вне этого пакета.
func (s *Service) ValidateAccessToken(_ context.Context, accessToken string) (uuid.UUID, error) {
	const op = "service.token.ValidateAccessToken"

	uid, _, err := s.validateToken(accessToken, []byte(s.cfg.AccessSecret))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return uid, nil
}
