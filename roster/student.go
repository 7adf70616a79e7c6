// Package roster models the ordered list of students a batch of diplomas is
// generated for, and imports it from spreadsheets.
package roster

import (
	"strings"

	"github.com/google/uuid"
)

// Student is one roster record. Well-known columns have their own field;
// any other spreadsheet column is kept verbatim in Extra.
type Student struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Grade string            `json:"grade,omitempty"`
	Level string            `json:"level,omitempty"`
	Rank  string            `json:"rank,omitempty"`
	Extra map[string]string `json:"extra,omitempty"`
}

// Roster is an ordered list of students. The order is the export order.
type Roster []Student

// New returns a Student with a fresh random ID.
func New(name string) Student {
	return Student{ID: uuid.NewString(), Name: name}
}

// Placeholder is the record exported when a roster holds no valid student.
func Placeholder() Student {
	return Student{
		ID:    "demo",
		Name:  "NOMBRE ESTUDIANTE",
		Grade: "GRADO",
		Level: "NIVEL",
		Rank:  "PUESTO",
	}
}

// PreviewSample is the record shown by previews before a roster is loaded.
func PreviewSample(level string) Student {
	grade := "5° Grado"
	if level == "Inicial" {
		grade = "5 Años"
	}
	if level == "" {
		level = "Nivel Educativo"
	}
	return Student{
		ID:    "demo",
		Name:  "Estudiante Ejemplo",
		Grade: grade,
		Level: level,
		Rank:  "1er Puesto",
	}
}

// IsValid reports whether s can be exported, i.e. has a non-blank name.
func (s Student) IsValid() bool {
	return strings.TrimSpace(s.Name) != ""
}

// Field looks key up case-insensitively, first among the well-known fields
// (Spanish column names and English field names are both accepted) and then
// in Extra.
func (s Student) Field(key string) (string, bool) {
	switch strings.ToLower(key) {
	case "id":
		return s.ID, true
	case "nombres", "name":
		return s.Name, true
	case "grado", "grade":
		return s.Grade, true
	case "nivel", "level":
		return s.Level, true
	case "puesto", "rank":
		return s.Rank, true
	}
	for k, v := range s.Extra {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// Valid returns the students with a non-blank name, in roster order.
func (r Roster) Valid() Roster {
	out := make(Roster, 0, len(r))
	for _, s := range r {
		if s.IsValid() {
			out = append(out, s)
		}
	}
	return out
}
