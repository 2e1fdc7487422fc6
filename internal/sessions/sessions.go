// sessions реализует реестр сессий: быстрое key-value отображение
// пользователя на его текущий refresh-токен с TTL, равным сроку
// действия токена.
//
// Инвариант: не более одной живой записи на пользователя. Put —
// безусловный upsert: новая запись вытесняет предыдущую (last-writer-wins),
// вытесненный refresh-токен перестаёт находиться при ротации, хотя
// криптографически остаётся валидным до собственного истечения.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Registry — минимальный контракт реестра сессий.
//
// Недоступность хранилища всегда возвращается как ошибка и должна
// проваливать объемлющий запрос: выданный, но незарегистрированный
// refresh-токен ломает инвариант "одна сессия на пользователя".
type Registry interface {
	// Put безусловно записывает refresh-токен пользователя с TTL.
	Put(ctx context.Context, userID uuid.UUID, refreshToken string, ttl time.Duration) error
	// Get возвращает текущий refresh-токен и признак наличия записи.
	Get(ctx context.Context, userID uuid.UUID) (string, bool, error)
	// Delete удаляет запись (logout/явный отзыв).
	Delete(ctx context.Context, userID uuid.UUID) error
	// Close закрывает клиент Redis.
	Close() error
}

type redisRegistry struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisRegistry создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "refresh_token:".
func NewRedisRegistry(redisURL, prefix string) (Registry, error) {
	const op = "sessions.NewRedisRegistry"

	if prefix == "" {
		prefix = "refresh_token:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &redisRegistry{rdb: rdb, prefix: prefix}, nil
}

func (r *redisRegistry) key(userID uuid.UUID) string { return r.prefix + userID.String() }

func (r *redisRegistry) Put(ctx context.Context, userID uuid.UUID, refreshToken string, ttl time.Duration) error {
	const op = "sessions.redis.Put"

	if err := r.rdb.Set(ctx, r.key(userID), refreshToken, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *redisRegistry) Get(ctx context.Context, userID uuid.UUID) (string, bool, error) {
	const op = "sessions.redis.Get"

	val, err := r.rdb.Get(ctx, r.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	return val, true, nil
}

func (r *redisRegistry) Delete(ctx context.Context, userID uuid.UUID) error {
	const op = "sessions.redis.Delete"

	if err := r.rdb.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *redisRegistry) Close() error { return r.rdb.Close() }
