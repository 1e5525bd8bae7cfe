package models

// APIResponse estructura estándar para respuestas de API
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// QuestionResponse respuesta específica para la pregunta actual
type QuestionResponse struct {
	Section  string `json:"section"`
	Number   int    `json:"number"`
	Question string `json:"question"`
	Complete bool   `json:"complete"`
}

// AnswerRequest cuerpo de POST /answer; Answer es nil si falta el campo
type AnswerRequest struct {
	Answer *string `json:"answer"`
}

// TransitionResponse resultado de guardar u omitir una respuesta
type TransitionResponse struct {
	Result string `json:"result"`
}
