package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Section grupo ordenado de preguntas. Questions[0] es la pregunta "1".
type Section struct {
	ID        string
	Questions []string
}

// Catalog definición inmutable de secciones y preguntas.
// El orden de Sections define el orden del examen.
type Catalog struct {
	Sections []Section
}

// Empty indica si el catálogo no tiene secciones
func (c *Catalog) Empty() bool {
	return c == nil || len(c.Sections) == 0
}

// Count número total de preguntas
func (c *Catalog) Count() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, s := range c.Sections {
		total += len(s.Questions)
	}
	return total
}

// FirstSection devuelve el identificador de la primera sección
func (c *Catalog) FirstSection() (string, bool) {
	if c.Empty() {
		return "", false
	}
	return c.Sections[0].ID, true
}

func (c *Catalog) indexOf(section string) int {
	if c == nil {
		return -1
	}
	for i, s := range c.Sections {
		if s.ID == section {
			return i
		}
	}
	return -1
}

// HasSection indica si la sección existe en el catálogo
func (c *Catalog) HasSection(section string) bool {
	return c.indexOf(section) >= 0
}

// Question busca el texto de la pregunta n (1-based) de una sección
func (c *Catalog) Question(section string, n int) (string, bool) {
	i := c.indexOf(section)
	if i < 0 || n < 1 || n > len(c.Sections[i].Questions) {
		return "", false
	}
	return c.Sections[i].Questions[n-1], true
}

// NextSection devuelve la sección que sigue a section en el orden del catálogo
func (c *Catalog) NextSection(section string) (string, bool) {
	i := c.indexOf(section)
	if i < 0 || i+1 >= len(c.Sections) {
		return "", false
	}
	return c.Sections[i+1].ID, true
}

// UnmarshalJSON conserva el orden de las secciones tal como aparecen en el documento.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("error leyendo catálogo: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("el catálogo debe ser un objeto JSON")
	}

	var sections []Section
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("error leyendo sección: %w", err)
		}
		id, _ := tok.(string)
		if seen[id] {
			return fmt.Errorf("sección duplicada: %q", id)
		}
		seen[id] = true

		var raw map[string]string
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("sección %q: %w", id, err)
		}
		questions, err := orderQuestions(id, raw)
		if err != nil {
			return err
		}
		sections = append(sections, Section{ID: id, Questions: questions})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("error cerrando catálogo: %w", err)
	}

	c.Sections = sections
	return nil
}

// orderQuestions convierte las claves "1".."n" en una lista ordenada numéricamente
func orderQuestions(section string, raw map[string]string) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("sección %q: no tiene preguntas", section)
	}
	questions := make([]string, 0, len(raw))
	for n := 1; n <= len(raw); n++ {
		text, ok := raw[strconv.Itoa(n)]
		if !ok {
			return nil, fmt.Errorf("sección %q: las preguntas deben numerarse de 1 a %d sin huecos", section, len(raw))
		}
		questions = append(questions, text)
	}
	return questions, nil
}

// MarshalJSON emite las secciones en orden, con números de pregunta como strings.
func (c Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range c.Sections {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.ID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(":{")
		for n, text := range s.Questions {
			if n > 0 {
				buf.WriteByte(',')
			}
			value, err := json.Marshal(text)
			if err != nil {
				return nil, err
			}
			buf.WriteString(`"` + strconv.Itoa(n+1) + `":`)
			buf.Write(value)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
