package store

import (
	"context"
	"fmt"
	"log"

	"github.com/backsoul/intake/pkg/config"
	"github.com/backsoul/intake/pkg/redis"
)

// Open crea el backend indicado por cfg.Store
func Open(ctx context.Context, cfg config.Config) (Backend, error) {
	switch cfg.Store {
	case config.StoreFile:
		log.Printf("💾 Progreso en archivo %s", cfg.ProgressFile)
		return NewFileBackend(cfg.ProgressFile)
	case config.StoreSQLite:
		log.Printf("💾 Progreso en SQLite %s", cfg.SQLitePath)
		return OpenSQLiteBackend(cfg.SQLitePath)
	case config.StoreRedis:
		log.Printf("🔌 Conectando a Redis en %s...", cfg.RedisAddr)
		client, err := redis.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return NewRedisBackend(client, cfg.RedisKey), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
