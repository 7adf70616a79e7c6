package diploma

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback name tokens.
const (
	studentFallback     = "Estudiante"
	institutionFallback = "Institucion"
)

// SanitizeFilename reduces s to ASCII letters, digits, spaces and hyphens.
// Accented letters keep their base letter ("José" becomes "Jose"); every
// other character is dropped. The result is trimmed and may be empty.
func SanitizeFilename(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// StudentFilename is the file stem for the student at zero-based index.
// It falls back to "Estudiante-{index+1}" when the name sanitizes to
// nothing.
func StudentFilename(name string, index int) string {
	if s := SanitizeFilename(name); s != "" {
		return s
	}
	return studentFallback + "-" + strconv.Itoa(index+1)
}

// InstitutionFilename is the file stem for an institution, falling back to
// "Institucion".
func InstitutionFilename(name string) string {
	if s := SanitizeFilename(name); s != "" {
		return s
	}
	return institutionFallback
}

// uniqueNames hands out names that have not been returned before, adding
// "-2", "-3", ... to repeats.
type uniqueNames map[string]struct{}

func (u uniqueNames) next(stem string) string {
	name := stem
	for n := 2; ; n++ {
		if _, taken := u[name]; !taken {
			u[name] = struct{}{}
			return name
		}
		name = stem + "-" + strconv.Itoa(n)
	}
}
