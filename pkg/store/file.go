package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/backsoul/intake/pkg/models"
)

// FileBackend guarda el progreso en un archivo JSON.
// Las escrituras van a un archivo temporal que se publica con rename.
type FileBackend struct {
	path string
}

// NewFileBackend crea un backend sobre path
func NewFileBackend(path string) (*FileBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("progress file path is required")
	}
	return &FileBackend{path: path}, nil
}

// Path ruta del archivo de progreso
func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Load(ctx context.Context) (*models.ProgressRecord, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error leyendo %s: %w", b.path, err)
	}
	record, err := decodeProgress(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.path, err)
	}
	return record, nil
}

func (b *FileBackend) Save(ctx context.Context, record *models.ProgressRecord) error {
	data, err := encodeProgress(record)
	if err != nil {
		return err
	}
	if err := writeFileAtomicDurable(b.path, data, 0o644); err != nil {
		return fmt.Errorf("error escribiendo %s: %w", b.path, err)
	}
	return nil
}

func (b *FileBackend) Delete(ctx context.Context) error {
	if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (b *FileBackend) HealthCheck(ctx context.Context) error {
	dir := filepath.Dir(b.path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("progress directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("progress directory %s is not a directory", dir)
	}
	return nil
}

func (b *FileBackend) Close() error {
	return nil
}

func writeFileAtomicDurable(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return fsyncDir(dir)
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
