package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Nombres de las funciones expuestas al agente de voz
const (
	SaveAnswerTool   = "save_answer"
	SkipQuestionTool = "skip_question"
)

var (
	// ErrUnknownTool el agente pidió una función que no existe
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments los argumentos de la llamada no tienen la forma esperada
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Commands operaciones del examen que el agente puede invocar
type Commands interface {
	SaveAnswer(ctx context.Context, answer string) (string, error)
	SkipQuestion(ctx context.Context) (string, error)
}

// Definitions describe las funciones en el formato de herramientas de OpenAI
func Definitions() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        SaveAnswerTool,
				Description: "Save the user's answer and advance",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"answer": {
							Type:        jsonschema.String,
							Description: "user's answer to the current question",
						},
					},
					Required: []string{"answer"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        SkipQuestionTool,
				Description: "Skip the current question and advance",
				Parameters: jsonschema.Definition{
					Type:       jsonschema.Object,
					Properties: map[string]jsonschema.Definition{},
				},
			},
		},
	}
}

// Dispatcher traduce llamadas a herramientas en operaciones tipadas
type Dispatcher struct {
	commands Commands
}

// NewDispatcher crea un dispatcher sobre commands
func NewDispatcher(commands Commands) *Dispatcher {
	return &Dispatcher{commands: commands}
}

type saveAnswerArgs struct {
	Answer *string `json:"answer"`
}

// Dispatch ejecuta la llamada y devuelve el texto que el agente debe leer
func (d *Dispatcher) Dispatch(ctx context.Context, call openai.ToolCall) (string, error) {
	switch call.Function.Name {
	case SaveAnswerTool:
		var args saveAnswerArgs
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrInvalidArguments, SaveAnswerTool, err)
		}
		if args.Answer == nil {
			return "", fmt.Errorf("%w: %s requires \"answer\"", ErrInvalidArguments, SaveAnswerTool)
		}
		return d.commands.SaveAnswer(ctx, *args.Answer)
	case SkipQuestionTool:
		if args := strings.TrimSpace(call.Function.Arguments); args != "" {
			var ignored map[string]any
			if err := json.Unmarshal([]byte(args), &ignored); err != nil {
				return "", fmt.Errorf("%w: %s: %v", ErrInvalidArguments, SkipQuestionTool, err)
			}
		}
		return d.commands.SkipQuestion(ctx)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, call.Function.Name)
	}
}
