package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxTxRetries intentos de una transacción optimista antes de rendirse
const maxTxRetries = 10

// ErrTxConflict la clave cambió en cada intento de la transacción
var ErrTxConflict = errors.New("redis transaction conflict")

// RedisClient estructura para manejar conexiones con Redis
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient crea una nueva instancia del cliente Redis y verifica la conexión
func NewRedisClient(ctx context.Context, addr, password string, db int) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("error conectando a Redis en %s: %w", addr, err)
	}

	log.Printf("✅ Conexión exitosa a Redis (%s)", addr)

	return &RedisClient{
		client: rdb,
	}, nil
}

// IsNotFound indica si el error corresponde a una clave inexistente
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Get obtiene el valor de una clave
func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	return r.client.Get(ctx, key).Bytes()
}

// Set guarda un valor; ttl 0 significa sin expiración
func (r *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Del elimina una clave
func (r *RedisClient) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Update lee key bajo WATCH y escribe lo que devuelva fn en un MULTI/EXEC.
// fn recibe nil si la clave no existe; si devuelve nil no se escribe nada.
// Si otro cliente modifica la clave entre la lectura y la escritura, la
// transacción se repite y fn se vuelve a llamar con el valor nuevo.
func (r *RedisClient) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		next, err := fn(current)
		if err != nil || next == nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		log.Printf("🔁 Conflicto en la clave %s, reintentando (%d/%d)", key, i+1, maxTxRetries)
	}
	return fmt.Errorf("%w: %s", ErrTxConflict, key)
}

// Close cierra la conexión con Redis
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// HealthCheck verifica que Redis esté funcionando
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if _, err := r.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
