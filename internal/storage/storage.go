package storage

import (
	"context"
	"errors"

	"budget-buddy/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
//
// Выборки по умолчанию не возвращают monobank_token: это секрет аккаунта,
// он читается только явным MonobankTokenByUserID.
type UserStorage interface {
	// SaveUser создает нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// MonobankTokenByUserID возвращает секретный токен стороннего API.
	MonobankTokenByUserID(ctx context.Context, id uuid.UUID) (string, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	Close()
}
