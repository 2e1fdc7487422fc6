package models

import "time"

// TokenPair — пара токенов, выдаваемая при регистрации/аутентификации.
//
// Описание:
//   - AccessToken — короткоживущий JWT для авторизации отдельных запросов;
//   - RefreshToken — долгоживущий JWT, подписанный отдельным секретом;
//     используется только для выпуска новых access-токенов и зеркалится
//     в реестре сессий (Redis) с TTL, равным сроку его действия;
//   - AccessExpiresAt / RefreshExpiresAt — моменты истечения (UTC).
type TokenPair struct {
	// AccessToken — JWT для авторизации запросов.
	AccessToken string
	// RefreshToken — JWT для обновления access-токена.
	RefreshToken string
	// AccessExpiresAt — время истечения действия access-токена (UTC).
	AccessExpiresAt time.Time
	// RefreshExpiresAt — время истечения действия refresh-токена (UTC).
	RefreshExpiresAt time.Time
}
