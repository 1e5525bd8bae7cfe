package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/backsoul/intake/pkg/config"
	"github.com/backsoul/intake/pkg/services"
	"github.com/backsoul/intake/pkg/store"
	"github.com/spf13/cobra"
)

// examDeps servicios compartidos por serve y los comandos de una sola operación
type examDeps struct {
	questions *services.QuestionService
	exam      *services.ExamService
	progress  *store.ProgressStore
}

func (d *examDeps) Close() error {
	return d.progress.Close()
}

func openExam(ctx context.Context, cfg config.Config) (*examDeps, error) {
	questions := services.NewQuestionService(cfg.QuestionsFile)
	questions.Load()

	backend, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open progress store: %w", err)
	}
	progress := store.NewProgressStore(backend, questions)
	return &examDeps{
		questions: questions,
		exam:      services.NewExamService(questions, progress),
		progress:  progress,
	}, nil
}

// withExam abre los servicios, ejecuta fn y cierra el almacenamiento
func withExam(cmd *cobra.Command, fn func(ctx context.Context, deps *examDeps) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	deps, err := openExam(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()
	return fn(ctx, deps)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Muestra el progreso guardado",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExam(cmd, func(ctx context.Context, deps *examDeps) error {
			record, err := deps.exam.GetProgress(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), record)
		})
	},
}

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Muestra el catálogo de preguntas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), services.NewQuestionService(cfg.QuestionsFile).Load())
	},
}

var questionCmd = &cobra.Command{
	Use:   "question",
	Short: "Muestra la pregunta actual",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExam(cmd, func(ctx context.Context, deps *examDeps) error {
			slot, err := deps.exam.GetCurrentSlot(ctx)
			if err != nil {
				return err
			}
			if slot.Complete {
				fmt.Fprintln(cmd.OutOrStdout(), services.CompletionMessage)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %d] %s\n", slot.Section, slot.Number, slot.Question)
			return nil
		})
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer <text...>",
	Short: "Guarda la respuesta de la pregunta actual y avanza",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		answer := strings.Join(args, " ")
		return withExam(cmd, func(ctx context.Context, deps *examDeps) error {
			result, err := deps.exam.SaveAnswer(ctx, answer)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		})
	},
}

var skipCmd = &cobra.Command{
	Use:   "skip",
	Short: "Omite la pregunta actual y avanza",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExam(cmd, func(ctx context.Context, deps *examDeps) error {
			result, err := deps.exam.SkipQuestion(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Borra el progreso y vuelve a la primera pregunta",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExam(cmd, func(ctx context.Context, deps *examDeps) error {
			record, err := deps.exam.Reset(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), record)
		})
	},
}
