package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/backsoul/intake/pkg/models"
	"github.com/backsoul/intake/pkg/store"
)

// Mensajes que el agente de voz usa para formular la siguiente pregunta
const (
	CompletionMessage  = "Thank you for completing the intake exam."
	NoQuestionsMessage = "No more questions available."
	answerSavedFormat  = "Answer saved. Next question: %s"
	skippedFormat      = "Question skipped. Next question: %s"
)

// ExamService implementa la máquina de estados del examen sobre el catálogo y
// el progreso guardado. Cada lectura-transición-guardado se ejecuta con mutex.
type ExamService struct {
	questions *QuestionService
	progress  *store.ProgressStore

	mutex    sync.Mutex
	onChange func(*models.ProgressRecord)
}

// NewExamService crea una nueva instancia del servicio
func NewExamService(questions *QuestionService, progress *store.ProgressStore) *ExamService {
	return &ExamService{
		questions: questions,
		progress:  progress,
	}
}

// OnChange registra una función que recibe una copia del progreso después de
// cada transición guardada
func (s *ExamService) OnChange(fn func(*models.ProgressRecord)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.onChange = fn
}

// GetQuestions devuelve el catálogo de solo lectura
func (s *ExamService) GetQuestions() *models.Catalog {
	return s.questions.GetQuestions()
}

// GetProgress devuelve una copia del progreso actual
func (s *ExamService) GetProgress(ctx context.Context) (*models.ProgressRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, err := s.progress.Get(ctx)
	if err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// GetCurrentQuestion devuelve el texto de la pregunta actual o NoQuestionsMessage
// si las coordenadas no existen en el catálogo
func (s *ExamService) GetCurrentQuestion(ctx context.Context) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, err := s.progress.Get(ctx)
	if err != nil {
		return "", err
	}
	return s.questionText(record), nil
}

// GetCurrentSlot devuelve sección, número y texto de la pregunta actual
func (s *ExamService) GetCurrentSlot(ctx context.Context) (models.QuestionResponse, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, err := s.progress.Get(ctx)
	if err != nil {
		return models.QuestionResponse{}, err
	}
	return models.QuestionResponse{
		Section:  record.CurrentSection,
		Number:   record.CurrentQuestion,
		Question: s.questionText(record),
		Complete: record.Completed(),
	}, nil
}

// SaveAnswer guarda answer en la pregunta actual y avanza
func (s *ExamService) SaveAnswer(ctx context.Context, answer string) (string, error) {
	return s.advance(ctx, &answer, answerSavedFormat)
}

// SkipQuestion marca la pregunta actual como omitida y avanza
func (s *ExamService) SkipQuestion(ctx context.Context) (string, error) {
	return s.advance(ctx, nil, skippedFormat)
}

// HealthCheck verifica que el almacenamiento del progreso responda
func (s *ExamService) HealthCheck(ctx context.Context) error {
	return s.progress.HealthCheck(ctx)
}

// Reset borra el progreso y vuelve a la primera pregunta
func (s *ExamService) Reset(ctx context.Context) (*models.ProgressRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, err := s.progress.Reset(ctx)
	if err != nil {
		return nil, err
	}
	log.Println("🔄 Progreso del examen reiniciado")
	s.notify(record)
	return record.Clone(), nil
}

func (s *ExamService) advance(ctx context.Context, value *string, format string) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	catalog := s.questions.GetQuestions()

	// El resultado se recalcula en cada llamada porque Update puede repetir la transición.
	var message string
	var changed bool
	record, err := s.progress.Update(ctx, func(record *models.ProgressRecord) (bool, error) {
		message, changed = transition(catalog, record, value, format)
		return changed, nil
	})
	if err != nil {
		return "", err
	}
	if changed {
		s.notify(record)
		if record.Completed() {
			log.Println("🏁 Examen completado")
		}
	}
	return message, nil
}

// transition guarda value en la pregunta actual de record y lo mueve a la
// siguiente pregunta, a la siguiente sección o al estado completado. Devuelve
// el texto para el agente y si record cambió.
func transition(catalog *models.Catalog, record *models.ProgressRecord, value *string, format string) (string, bool) {
	if record.Completed() {
		return CompletionMessage, false
	}

	section, question := record.CurrentSection, record.CurrentQuestion
	if !catalog.HasSection(section) {
		// Sin la sección no hay forma de calcular la siguiente.
		log.Printf("⚠️ La sección %q no existe en el catálogo", section)
		return NoQuestionsMessage, false
	}

	record.SetAnswer(section, question, value)

	if _, ok := catalog.Question(section, question+1); ok {
		record.CurrentQuestion = question + 1
	} else if next, ok := catalog.NextSection(section); ok {
		record.CurrentSection = next
		record.CurrentQuestion = 1
	} else {
		record.CurrentSection = ""
		record.CurrentQuestion = 0
		return CompletionMessage, true
	}
	return fmt.Sprintf(format, questionTextFrom(catalog, record)), true
}

func (s *ExamService) questionText(record *models.ProgressRecord) string {
	return questionTextFrom(s.questions.GetQuestions(), record)
}

func questionTextFrom(catalog *models.Catalog, record *models.ProgressRecord) string {
	if record.Completed() {
		return NoQuestionsMessage
	}
	text, ok := catalog.Question(record.CurrentSection, record.CurrentQuestion)
	if !ok {
		return NoQuestionsMessage
	}
	return text
}

func (s *ExamService) notify(record *models.ProgressRecord) {
	if s.onChange != nil {
		s.onChange(record.Clone())
	}
}
