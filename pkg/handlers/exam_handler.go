package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/backsoul/intake/pkg/models"
	"github.com/backsoul/intake/pkg/services"
	"github.com/backsoul/intake/pkg/store"
	"github.com/valyala/fasthttp"
)

// ExamHandler maneja las peticiones HTTP del examen
type ExamHandler struct {
	examService     *services.ExamService
	questionService *services.QuestionService
}

// NewExamHandler crea una nueva instancia del handler
func NewExamHandler(examService *services.ExamService, questionService *services.QuestionService) *ExamHandler {
	return &ExamHandler{
		examService:     examService,
		questionService: questionService,
	}
}

// respondWithServiceError traduce errores del servicio a respuestas HTTP
func (h *ExamHandler) respondWithServiceError(ctx *fasthttp.RequestCtx, action string, err error) {
	if errors.Is(err, store.ErrCorruptState) {
		log.Printf("❌ Progreso corrupto: %v", err)
		respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("El progreso guardado está corrupto: %v", err))
		return
	}
	log.Printf("❌ Error %s: %v", action, err)
	respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("Error %s: %v", action, err))
}

// Index maneja GET /
func (h *ExamHandler) Index(ctx *fasthttp.RequestCtx) {
	respondWithJSON(ctx, fasthttp.StatusOK, map[string]string{
		"message": "Intake Exam Voice Agent is running!",
	})
}

// GetProgress maneja GET /progress
func (h *ExamHandler) GetProgress(ctx *fasthttp.RequestCtx) {
	progress, err := h.examService.GetProgress(ctx)
	if err != nil {
		h.respondWithServiceError(ctx, "obteniendo progreso", err)
		return
	}
	respondWithSuccess(ctx, progress, "Progreso obtenido exitosamente")
}

// GetQuestions maneja GET /questions
func (h *ExamHandler) GetQuestions(ctx *fasthttp.RequestCtx) {
	respondWithSuccess(ctx, h.examService.GetQuestions(), "Preguntas obtenidas exitosamente")
}

// GetCurrentQuestion maneja GET /question
func (h *ExamHandler) GetCurrentQuestion(ctx *fasthttp.RequestCtx) {
	slot, err := h.examService.GetCurrentSlot(ctx)
	if err != nil {
		h.respondWithServiceError(ctx, "obteniendo pregunta actual", err)
		return
	}
	respondWithSuccess(ctx, slot, "Pregunta actual obtenida exitosamente")
}

// SaveAnswer maneja POST /answer
func (h *ExamHandler) SaveAnswer(ctx *fasthttp.RequestCtx) {
	var request models.AnswerRequest
	if err := json.Unmarshal(ctx.PostBody(), &request); err != nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "JSON inválido")
		return
	}
	if request.Answer == nil {
		respondWithError(ctx, fasthttp.StatusBadRequest, "El campo 'answer' es requerido")
		return
	}

	result, err := h.examService.SaveAnswer(ctx, *request.Answer)
	if err != nil {
		h.respondWithServiceError(ctx, "guardando respuesta", err)
		return
	}
	h.respondWithTransition(ctx, result)
}

// SkipQuestion maneja POST /skip
func (h *ExamHandler) SkipQuestion(ctx *fasthttp.RequestCtx) {
	result, err := h.examService.SkipQuestion(ctx)
	if err != nil {
		h.respondWithServiceError(ctx, "omitiendo pregunta", err)
		return
	}
	h.respondWithTransition(ctx, result)
}

func (h *ExamHandler) respondWithTransition(ctx *fasthttp.RequestCtx, result string) {
	respondWithSuccess(ctx, models.TransitionResponse{Result: result}, result)
}

// Reset maneja POST /reset
func (h *ExamHandler) Reset(ctx *fasthttp.RequestCtx) {
	progress, err := h.examService.Reset(ctx)
	if err != nil {
		h.respondWithServiceError(ctx, "reiniciando progreso", err)
		return
	}
	respondWithSuccess(ctx, progress, "Progreso reiniciado exitosamente")
}

// ReloadQuestions maneja POST /questions/reload
func (h *ExamHandler) ReloadQuestions(ctx *fasthttp.RequestCtx) {
	catalog, err := h.questionService.ReloadQuestions()
	if err != nil {
		respondWithError(ctx, fasthttp.StatusInternalServerError, fmt.Sprintf("Error recargando preguntas: %v", err))
		return
	}
	respondWithSuccess(ctx, catalog, "Preguntas recargadas exitosamente")
}

// HealthCheck maneja GET /api/health
func (h *ExamHandler) HealthCheck(ctx *fasthttp.RequestCtx) {
	if err := h.examService.HealthCheck(ctx); err != nil {
		respondWithError(ctx, fasthttp.StatusServiceUnavailable, fmt.Sprintf("Servicio no disponible: %v", err))
		return
	}

	catalog := h.examService.GetQuestions()
	respondWithSuccess(ctx, map[string]interface{}{
		"status":    "healthy",
		"sections":  len(catalog.Sections),
		"questions": catalog.Count(),
	}, "Servicio funcionando correctamente")
}
