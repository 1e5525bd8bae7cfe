package tools

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/backsoul/intake/pkg/models"
	"github.com/backsoul/intake/pkg/services"
)

// Instructions arma el mensaje de sistema del agente con la posición actual del examen
func Instructions(progress *models.ProgressRecord, currentQuestion string, now time.Time) string {
	number := ""
	if progress.CurrentQuestion > 0 {
		number = strconv.Itoa(progress.CurrentQuestion)
	}

	var b strings.Builder
	b.WriteString("You are an AI voice assistant for an intake exam.\n")
	b.WriteString("You will ask questions one at a time from a predefined set, track progress, and save user answers.\n\n")
	fmt.Fprintf(&b, "- Current section: %s\n", progress.CurrentSection)
	fmt.Fprintf(&b, "- Current question number: %s\n", number)
	fmt.Fprintf(&b, "- Current question: %s\n", currentQuestion)
	b.WriteString("- Ask the current question and wait for the user's response.\n")
	fmt.Fprintf(&b, "- Call the `%s` function with the user's response to save it and advance to the next question.\n", SaveAnswerTool)
	fmt.Fprintf(&b, "- If the user says \"skip\" or \"I don't know,\" call the `%s` function to skip the question and advance.\n", SkipQuestionTool)
	b.WriteString("- If the response is unclear, repeat the current question.\n")
	b.WriteString("- Do not ask multiple questions at once. Focus only on the current question.\n")
	fmt.Fprintf(&b, "- When all questions are complete, inform the user: %q\n", services.CompletionMessage)
	fmt.Fprintf(&b, "\nCurrent date and time: %s", now.Format("2006-01-02 15:04:05"))
	return b.String()
}
