package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedProgress el documento de progreso no tiene la forma esperada
var ErrMalformedProgress = errors.New("malformed progress record")

// ProgressRecord estado durable del examen.
// CurrentSection == "" y CurrentQuestion == 0 significan examen completado.
// Un valor nil en Answers es una pregunta sin responder u omitida.
type ProgressRecord struct {
	CurrentSection  string
	CurrentQuestion int
	Answers         map[string]map[int]*string
}

// NewProgress crea el registro inicial a partir del catálogo: primera sección,
// pregunta 1 y todas las respuestas en nil.
func NewProgress(catalog *Catalog) *ProgressRecord {
	record := &ProgressRecord{Answers: make(map[string]map[int]*string)}
	if catalog.Empty() {
		return record
	}
	for _, s := range catalog.Sections {
		answers := make(map[int]*string, len(s.Questions))
		for n := 1; n <= len(s.Questions); n++ {
			answers[n] = nil
		}
		record.Answers[s.ID] = answers
	}
	record.CurrentSection, _ = catalog.FirstSection()
	record.CurrentQuestion = 1
	return record
}

// Completed indica si el examen llegó al estado terminal
func (p *ProgressRecord) Completed() bool {
	return p.CurrentSection == "" && p.CurrentQuestion == 0
}

// SetAnswer guarda value en (section, n); nil marca la pregunta como omitida
func (p *ProgressRecord) SetAnswer(section string, n int, value *string) {
	if p.Answers == nil {
		p.Answers = make(map[string]map[int]*string)
	}
	answers, ok := p.Answers[section]
	if !ok {
		answers = make(map[int]*string)
		p.Answers[section] = answers
	}
	answers[n] = value
}

// Answer devuelve la respuesta registrada y si la clave existe
func (p *ProgressRecord) Answer(section string, n int) (*string, bool) {
	value, ok := p.Answers[section][n]
	return value, ok
}

// Clone copia profunda del registro
func (p *ProgressRecord) Clone() *ProgressRecord {
	out := &ProgressRecord{
		CurrentSection:  p.CurrentSection,
		CurrentQuestion: p.CurrentQuestion,
		Answers:         make(map[string]map[int]*string, len(p.Answers)),
	}
	for section, answers := range p.Answers {
		inner := make(map[int]*string, len(answers))
		for n, value := range answers {
			if value != nil {
				v := *value
				value = &v
			}
			inner[n] = value
		}
		out.Answers[section] = inner
	}
	return out
}

type progressWire struct {
	CurrentSection  *string                       `json:"current_section"`
	CurrentQuestion *string                       `json:"current_question"`
	Answers         map[string]map[string]*string `json:"answers"`
}

// MarshalJSON serializa los números de pregunta como strings
func (p ProgressRecord) MarshalJSON() ([]byte, error) {
	section := p.CurrentSection
	question := ""
	if p.CurrentQuestion > 0 {
		question = strconv.Itoa(p.CurrentQuestion)
	}

	answers := make(map[string]map[string]*string, len(p.Answers))
	for s, inner := range p.Answers {
		wire := make(map[string]*string, len(inner))
		for n, value := range inner {
			wire[strconv.Itoa(n)] = value
		}
		answers[s] = wire
	}

	return json.Marshal(progressWire{
		CurrentSection:  &section,
		CurrentQuestion: &question,
		Answers:         answers,
	})
}

// UnmarshalJSON es estricto: cualquier campo ausente, desconocido o mal formado
// devuelve ErrMalformedProgress en lugar de un registro a medias.
func (p *ProgressRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var wire progressWire
	if err := dec.Decode(&wire); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedProgress, err)
	}
	if wire.CurrentSection == nil || wire.CurrentQuestion == nil || wire.Answers == nil {
		return fmt.Errorf("%w: current_section, current_question and answers are required", ErrMalformedProgress)
	}

	section, question := *wire.CurrentSection, 0
	switch {
	case section == "" && *wire.CurrentQuestion == "":
	case section == "" || *wire.CurrentQuestion == "":
		return fmt.Errorf("%w: current_section and current_question must both be set or both be empty", ErrMalformedProgress)
	default:
		n, err := parseQuestionNumber(*wire.CurrentQuestion)
		if err != nil {
			return err
		}
		question = n
	}

	answers := make(map[string]map[int]*string, len(wire.Answers))
	for s, inner := range wire.Answers {
		if inner == nil {
			return fmt.Errorf("%w: answers for section %q must be an object", ErrMalformedProgress, s)
		}
		converted := make(map[int]*string, len(inner))
		for key, value := range inner {
			n, err := parseQuestionNumber(key)
			if err != nil {
				return err
			}
			converted[n] = value
		}
		answers[s] = converted
	}

	*p = ProgressRecord{
		CurrentSection:  section,
		CurrentQuestion: question,
		Answers:         answers,
	}
	return nil
}

func parseQuestionNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || strconv.Itoa(n) != s {
		return 0, fmt.Errorf("%w: invalid question number %q", ErrMalformedProgress, s)
	}
	return n, nil
}
