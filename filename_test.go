package diploma

import (
	"regexp"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"José/Test", "JoseTest"},
		{"Ana Ruiz", "Ana Ruiz"},
		{"  María-José Núñez  ", "Maria-Jose Nunez"},
		{"I.E. N° 5023 \"San Martín\"", "IE N 5023 San Martin"},
		{"../../etc/passwd", "etcpasswd"},
		{"日本語", ""},
		{"***", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilename_Alphabet(t *testing.T) {
	allowed := regexp.MustCompile(`^[A-Za-z0-9 -]*$`)
	for _, in := range []string{"a\tb\nc", "Ñandú!?¿", "x́y", "emoji 🎓 ok", "a_b.c,d;e"} {
		if got := SanitizeFilename(in); !allowed.MatchString(got) {
			t.Errorf("SanitizeFilename(%q) = %q, contains disallowed characters", in, got)
		}
	}
}

func TestStudentFilename(t *testing.T) {
	if got := StudentFilename("Lu", 4); got != "Lu" {
		t.Errorf("StudentFilename(Lu) = %q", got)
	}
	if got := StudentFilename("///", 0); got != "Estudiante-1" {
		t.Errorf("StudentFilename(///, 0) = %q, want Estudiante-1", got)
	}
	if got := StudentFilename("", 9); got != "Estudiante-10" {
		t.Errorf("StudentFilename(\"\", 9) = %q, want Estudiante-10", got)
	}
}

func TestInstitutionFilename(t *testing.T) {
	if got := InstitutionFilename(""); got != "Institucion" {
		t.Errorf("InstitutionFilename(\"\") = %q, want Institucion", got)
	}
	if got := InstitutionFilename("INSTITUCIÓN EDUCATIVA"); got != "INSTITUCION EDUCATIVA" {
		t.Errorf("InstitutionFilename = %q", got)
	}
}

func TestUniqueNames(t *testing.T) {
	u := uniqueNames{}
	got := []string{u.next("Ana"), u.next("Ana"), u.next("Ana-2"), u.next("Ana"), u.next("Lu")}
	want := []string{"Ana", "Ana-2", "Ana-2-2", "Ana-3", "Lu"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("next #%d = %q, want %q", i, got[i], want[i])
		}
	}
}
