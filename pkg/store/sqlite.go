package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/backsoul/intake/pkg/models"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const progressSchema = `CREATE TABLE IF NOT EXISTS exam_progress (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	data       TEXT    NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteBackend guarda el progreso en una fila única de SQLite
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLiteBackend abre la base de datos en dsn y crea la tabla si no existe
func OpenSQLiteBackend(dsn string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Un solo escritor; también mantiene viva una base en memoria.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(progressSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Load(ctx context.Context) (*models.ProgressRecord, error) {
	var data string
	err := b.db.QueryRowContext(ctx, `SELECT data FROM exam_progress WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select progress: %w", err)
	}
	record, err := decodeProgress([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("sqlite exam_progress: %w", err)
	}
	return record, nil
}

func (b *SQLiteBackend) Save(ctx context.Context, record *models.ProgressRecord) error {
	data, err := encodeProgress(record)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO exam_progress (id, data, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Delete(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM exam_progress WHERE id = 1`); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) HealthCheck(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// DB devuelve la conexión subyacente
func (b *SQLiteBackend) DB() *sql.DB {
	return b.db
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = FULL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}
