package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStudentField(t *testing.T) {
	s := Student{
		Name:  "Ana",
		Grade: "5° Grado",
		Rank:  "1er Puesto",
		Extra: map[string]string{"Seccion": "B"},
	}

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"Nombres", "Ana", true},
		{"NAME", "Ana", true},
		{"grado", "5° Grado", true},
		{"Puesto", "1er Puesto", true},
		{"seccion", "B", true},
		{"Turno", "", false},
	}
	for _, tt := range tests {
		got, ok := s.Field(tt.key)
		assert.Equal(t, tt.wantOK, ok, tt.key)
		assert.Equal(t, tt.want, got, tt.key)
	}
}

func TestValid_KeepsOrder(t *testing.T) {
	r := Roster{{Name: "b"}, {Name: "  "}, {Name: "a"}, {}}
	v := r.Valid()
	assert.Equal(t, Roster{{Name: "b"}, {Name: "a"}}, v)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "NOMBRE ESTUDIANTE", Placeholder().Name)
	assert.True(t, Placeholder().IsValid())

	assert.Equal(t, "5 Años", PreviewSample("Inicial").Grade)
	assert.Equal(t, "5° Grado", PreviewSample("Primaria").Grade)
	assert.Equal(t, "Nivel Educativo", PreviewSample("").Level)
}
