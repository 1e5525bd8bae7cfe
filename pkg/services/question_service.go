package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/backsoul/intake/pkg/models"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const catalogSchemaURL = "schema://questions.json"

// catalogSchema forma del archivo de preguntas: {sección: {"1": "texto", ...}}
var catalogSchema = map[string]any{
	"type": "object",
	"additionalProperties": map[string]any{
		"type":          "object",
		"minProperties": 1,
		"propertyNames": map[string]any{
			"pattern": "^[1-9][0-9]*$",
		},
		"additionalProperties": map[string]any{
			"type": "string",
		},
	},
}

var (
	compiledSchemaOnce sync.Once
	compiledSchema     *jsonschema.Schema
	compiledSchemaErr  error
)

func getCatalogSchema() (*jsonschema.Schema, error) {
	compiledSchemaOnce.Do(func() {
		// El compilador espera un valor JSON ya decodificado.
		defBytes, err := json.Marshal(catalogSchema)
		if err != nil {
			compiledSchemaErr = fmt.Errorf("marshal schema definition: %w", err)
			return
		}
		var defParsed any
		if err := json.Unmarshal(defBytes, &defParsed); err != nil {
			compiledSchemaErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(catalogSchemaURL, defParsed); err != nil {
			compiledSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = c.Compile(catalogSchemaURL)
	})
	return compiledSchema, compiledSchemaErr
}

// QuestionService carga el catálogo de secciones y preguntas del examen
type QuestionService struct {
	filePath string

	mutex   sync.RWMutex
	catalog *models.Catalog
}

// NewQuestionService crea una nueva instancia del servicio
func NewQuestionService(filePath string) *QuestionService {
	return &QuestionService{
		filePath: filePath,
	}
}

// LoadQuestionsFromFile lee y valida un archivo de preguntas.
// A diferencia de Load, cualquier problema se devuelve como error.
func (s *QuestionService) LoadQuestionsFromFile(filePath string) (*models.Catalog, error) {
	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error leyendo archivo de preguntas: %w", err)
	}

	var parsed any
	if err := json.Unmarshal(jsonData, &parsed); err != nil {
		return nil, fmt.Errorf("JSON inválido en %s: %w", filePath, err)
	}

	schema, err := getCatalogSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return nil, fmt.Errorf("el archivo %s no cumple el esquema de preguntas: %w", filePath, err)
	}

	var catalog models.Catalog
	if err := json.Unmarshal(jsonData, &catalog); err != nil {
		return nil, fmt.Errorf("error parsing preguntas: %w", err)
	}
	return &catalog, nil
}

// Load carga el catálogo desde el archivo configurado. Si el archivo no existe o
// no se puede leer, registra el problema y devuelve un catálogo vacío.
func (s *QuestionService) Load() *models.Catalog {
	catalog, err := s.LoadQuestionsFromFile(s.filePath)
	if err != nil {
		log.Printf("⚠️ No se pudieron cargar las preguntas: %v", err)
		catalog = &models.Catalog{}
	} else {
		log.Printf("📚 %d preguntas en %d secciones cargadas desde %s", catalog.Count(), len(catalog.Sections), s.filePath)
	}

	s.mutex.Lock()
	s.catalog = catalog
	s.mutex.Unlock()
	return catalog
}

// GetQuestions devuelve el catálogo actual, cargándolo la primera vez
func (s *QuestionService) GetQuestions() *models.Catalog {
	s.mutex.RLock()
	catalog := s.catalog
	s.mutex.RUnlock()

	if catalog != nil {
		return catalog
	}
	return s.Load()
}

// ReloadQuestions recarga las preguntas desde el archivo. Si falla, se conserva
// el catálogo anterior.
func (s *QuestionService) ReloadQuestions() (*models.Catalog, error) {
	log.Println("🔄 Recargando preguntas...")

	catalog, err := s.LoadQuestionsFromFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("error recargando preguntas: %w", err)
	}

	s.mutex.Lock()
	s.catalog = catalog
	s.mutex.Unlock()

	log.Println("✅ Preguntas recargadas exitosamente")
	return catalog, nil
}
