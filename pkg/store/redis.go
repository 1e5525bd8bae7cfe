package store

import (
	"context"
	"fmt"

	"github.com/backsoul/intake/pkg/models"
	"github.com/backsoul/intake/pkg/redis"
)

// RedisBackend guarda el documento de progreso en una sola clave de Redis.
// SET reemplaza el valor de forma atómica y Transact protege la
// lectura-modificación-escritura entre procesos con WATCH.
type RedisBackend struct {
	client *redis.RedisClient
	key    string
}

// NewRedisBackend crea un backend sobre client usando key
func NewRedisBackend(client *redis.RedisClient, key string) *RedisBackend {
	return &RedisBackend{
		client: client,
		key:    key,
	}
}

func (b *RedisBackend) Load(ctx context.Context) (*models.ProgressRecord, error) {
	data, err := b.client.Get(ctx, b.key)
	if err != nil {
		if redis.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error obteniendo %s de Redis: %w", b.key, err)
	}
	record, err := decodeProgress(data)
	if err != nil {
		return nil, fmt.Errorf("redis key %s: %w", b.key, err)
	}
	return record, nil
}

func (b *RedisBackend) Save(ctx context.Context, record *models.ProgressRecord) error {
	data, err := encodeProgress(record)
	if err != nil {
		return err
	}
	if err := b.client.Set(ctx, b.key, data, 0); err != nil {
		return fmt.Errorf("error guardando %s en Redis: %w", b.key, err)
	}
	return nil
}

// Transact implementa Transactor con una transacción optimista sobre la clave
func (b *RedisBackend) Transact(ctx context.Context, fn func(current *models.ProgressRecord) (*models.ProgressRecord, error)) error {
	return b.client.Update(ctx, b.key, func(data []byte) ([]byte, error) {
		var current *models.ProgressRecord
		if data != nil {
			record, err := decodeProgress(data)
			if err != nil {
				return nil, fmt.Errorf("redis key %s: %w", b.key, err)
			}
			current = record
		}
		next, err := fn(current)
		if err != nil || next == nil {
			return nil, err
		}
		return encodeProgress(next)
	})
}

func (b *RedisBackend) Delete(ctx context.Context) error {
	return b.client.Del(ctx, b.key)
}

func (b *RedisBackend) HealthCheck(ctx context.Context) error {
	return b.client.HealthCheck(ctx)
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
