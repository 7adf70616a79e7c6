package templates

import (
	"html"
	"html/template"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/porticus-lab/go-diploma/config"
	"github.com/porticus-lab/go-diploma/roster"
)

var placeholderRe = regexp.MustCompile(`{{\s*(\w+)\s*}}`)

const (
	defaultInstitution = "Institución Educativa"
	defaultLevel       = "Nivel Educativo"
)

// ProcessText substitutes the {{Field}} placeholders of text for display
// inside a design. Grade, level and rank values are set in bold. Literal
// text and values are HTML-escaped.
func ProcessText(text string, cfg config.Configuration, s roster.Student) template.HTML {
	return template.HTML(substitute(text, cfg, s, true))
}

// PlainText is ProcessText without markup.
func PlainText(text string, cfg config.Configuration, s roster.Student) string {
	return substitute(text, cfg, s, false)
}

// substitute replaces placeholders case-insensitively. Placeholders with no
// matching field, or whose field is empty, are left verbatim.
func substitute(text string, cfg config.Configuration, s roster.Student, markup bool) string {
	esc := func(v string) string { return v }
	bold := func(v string) string { return v }
	if markup {
		esc = html.EscapeString
		bold = func(v string) string {
			return `<strong style="font-weight: 700;">` + html.EscapeString(v) + `</strong>`
		}
	}

	var b strings.Builder
	last := 0
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(text, -1) {
		b.WriteString(esc(text[last:m[0]]))
		last = m[1]

		match := text[m[0]:m[1]]
		key := strings.ToLower(text[m[2]:m[3]])
		switch key {
		case "institucion":
			v := cfg.InstitutionName
			if v == "" {
				v = defaultInstitution
			}
			b.WriteString(esc(v))
		case "grado", "grade":
			b.WriteString(bold(s.Grade))
		case "nivel", "level":
			// The level is the institution's, never the student's.
			v := cfg.Level
			if v == "" {
				v = defaultLevel
			}
			b.WriteString(bold(v))
		case "puesto", "rank":
			b.WriteString(bold(s.Rank))
		case "nombres", "name":
			b.WriteString(esc(s.Name))
		default:
			if v, ok := s.Field(key); ok && v != "" {
				b.WriteString(esc(v))
			} else {
				b.WriteString(esc(match))
			}
		}
	}
	b.WriteString(esc(text[last:]))
	return b.String()
}

const (
	// Names up to this many characters use the design's base size.
	fitThreshold = 20
	// Names never shrink below this fraction of the base size.
	minFontRatio = 0.45
)

// AdaptiveFontSize returns the font size for a student name given the
// design's base size. Longer names get progressively smaller text so they
// wrap onto at most a couple of lines instead of overflowing.
func AdaptiveFontSize(name string, base float64) float64 {
	return base * nameScale(name)
}

func nameScale(name string) float64 {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n <= fitThreshold {
		return 1
	}
	r := float64(fitThreshold) / float64(n)
	if r < minFontRatio {
		r = minFontRatio
	}
	return r
}
