package models

import (
	"time"

	"github.com/google/uuid"
)

// User — модель пользователя в системе.
//
// MonobankToken — необязательный токен стороннего API, привязанный к
// аккаунту. Хранится в БД, но исключён из выборок по умолчанию
// (см. storage.UserStorage); в этой структуре заполняется только при
// создании пользователя.
type User struct {
	ID            uuid.UUID
	Email         string
	PasswordHash  string
	MonobankToken string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
