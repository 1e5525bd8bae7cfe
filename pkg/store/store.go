package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/backsoul/intake/pkg/models"
)

var (
	// ErrNotFound el backend no tiene ningún registro de progreso guardado
	ErrNotFound = errors.New("progress record not found")

	// ErrCorruptState el registro guardado existe pero no se puede interpretar
	ErrCorruptState = errors.New("corrupt progress state")
)

// Backend persiste el documento de progreso completo.
// Save debe ser atómico: un fallo a mitad de escritura deja el registro anterior intacto.
type Backend interface {
	Load(ctx context.Context) (*models.ProgressRecord, error)
	Save(ctx context.Context, record *models.ProgressRecord) error
	Delete(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// Transactor lo implementan los backends que pueden ejecutar una
// lectura-modificación-escritura atómica frente a otros procesos. fn recibe nil
// si no hay registro guardado y devuelve el registro a escribir, o nil para no
// escribir. fn puede llamarse más de una vez.
type Transactor interface {
	Transact(ctx context.Context, fn func(current *models.ProgressRecord) (*models.ProgressRecord, error)) error
}

// CatalogSource proporciona el catálogo usado para inicializar el progreso
type CatalogSource interface {
	GetQuestions() *models.Catalog
}

// ProgressStore lee y guarda el progreso del examen, creándolo la primera vez
// que se lee. No sincroniza llamadas concurrentes: quien encadena Get y Save
// debe hacerlo dentro de su propia sección crítica.
type ProgressStore struct {
	backend Backend
	catalog CatalogSource
}

// NewProgressStore crea una nueva instancia del store
func NewProgressStore(backend Backend, catalog CatalogSource) *ProgressStore {
	return &ProgressStore{
		backend: backend,
		catalog: catalog,
	}
}

// Get devuelve el progreso actual. Si no existe, lo inicializa desde el catálogo
// y lo guarda inmediatamente. Con un catálogo vacío devuelve un registro
// completado sin guardarlo.
func (s *ProgressStore) Get(ctx context.Context) (*models.ProgressRecord, error) {
	record, err := s.backend.Load(ctx)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	catalog := s.catalog.GetQuestions()
	record = models.NewProgress(catalog)
	if catalog.Empty() {
		log.Println("⚠️ Catálogo vacío: no hay preguntas para inicializar el progreso")
		return record, nil
	}

	if err := s.backend.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("error guardando progreso inicial: %w", err)
	}
	log.Printf("🆕 Progreso inicializado en sección %q, pregunta %d", record.CurrentSection, record.CurrentQuestion)
	return record, nil
}

// Update aplica fn al progreso actual (inicializándolo si no existe) y guarda
// el resultado si fn indica un cambio. Con un backend Transactor la operación es
// atómica entre procesos; si no, el llamador debe serializar las llamadas.
// fn puede ejecutarse varias veces y debe depender solo del registro recibido.
func (s *ProgressStore) Update(ctx context.Context, fn func(record *models.ProgressRecord) (bool, error)) (*models.ProgressRecord, error) {
	var result *models.ProgressRecord
	step := func(current *models.ProgressRecord) (*models.ProgressRecord, error) {
		record, seeded := current, false
		if record == nil {
			catalog := s.catalog.GetQuestions()
			record = models.NewProgress(catalog)
			seeded = !catalog.Empty()
		}
		changed, err := fn(record)
		if err != nil {
			return nil, err
		}
		result = record
		if changed || seeded {
			return record, nil
		}
		return nil, nil
	}

	if tx, ok := s.backend.(Transactor); ok {
		if err := tx.Transact(ctx, step); err != nil {
			return nil, fmt.Errorf("error actualizando progreso: %w", err)
		}
		return result, nil
	}

	current, err := s.backend.Load(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	next, err := step(current)
	if err != nil {
		return nil, err
	}
	if next != nil {
		if err := s.Save(ctx, next); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Save guarda el registro completo, reemplazando el anterior
func (s *ProgressStore) Save(ctx context.Context, record *models.ProgressRecord) error {
	if record == nil {
		return errors.New("nil progress record")
	}
	if err := s.backend.Save(ctx, record); err != nil {
		return fmt.Errorf("error guardando progreso: %w", err)
	}
	return nil
}

// Reset borra el progreso guardado y lo vuelve a inicializar desde el catálogo
func (s *ProgressStore) Reset(ctx context.Context) (*models.ProgressRecord, error) {
	if err := s.backend.Delete(ctx); err != nil {
		return nil, fmt.Errorf("error borrando progreso: %w", err)
	}
	return s.Get(ctx)
}

// HealthCheck verifica que el backend responda
func (s *ProgressStore) HealthCheck(ctx context.Context) error {
	return s.backend.HealthCheck(ctx)
}

// Close libera el backend
func (s *ProgressStore) Close() error {
	return s.backend.Close()
}

// encodeProgress serializa el registro con el formato del archivo answers.json
func encodeProgress(record *models.ProgressRecord) ([]byte, error) {
	data, err := json.MarshalIndent(record, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal progress: %w", err)
	}
	return append(data, '\n'), nil
}

// decodeProgress interpreta un documento guardado; cualquier fallo es ErrCorruptState
func decodeProgress(data []byte) (*models.ProgressRecord, error) {
	var record models.ProgressRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return &record, nil
}
