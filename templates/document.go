// Package templates renders diplomas as fixed-size HTML documents.
//
// A design is a named, fixed-layout visual. Every design draws into a root
// element #diploma of exactly Width×Height CSS pixels, the size of an A4
// landscape page at 96 dpi.
package templates

import (
	"github.com/porticus-lab/go-diploma/config"
	"github.com/porticus-lab/go-diploma/roster"
)

// Document pixel size: 297 × 210 mm at 96 dpi.
const (
	Width  = 1123
	Height = 794
)

// Document is one rendered diploma.
type Document struct {
	Design string
	Width  int
	Height int

	// HTML is a complete page. The #diploma element carries the CSS
	// transform for Zoom when Zoom != 1.
	HTML string
	Zoom float64

	// Images lists every image reference the page embeds, in document
	// order. Surfaces use it to know how many loads to wait for.
	Images []string

	Palette Palette
	Text    Lines
}

// Palette is a resolved color scheme, every field a #rrggbb value.
type Palette struct {
	Primary    string
	Secondary  string
	Background string
	Text       string
}

// Lines is a plain-text summary of the document for surfaces that cannot
// lay out HTML.
type Lines struct {
	Institution string
	Motto       string
	Title       string
	Subtitle    string
	Name        string
	// NameScale is the name font size relative to the design's base size.
	NameScale float64
	Body      string
	DatePlace string
	Signers   []SignerLine
}

// SignerLine is one signature block in Lines.
type SignerLine struct {
	Name string
	Role string
}

// RenderOptions tweak a single render.
type RenderOptions struct {
	// Zoom scales the #diploma element for on-screen previews. Zero means 1.
	Zoom float64
}

// Renderer produces a Document from a configuration and a student. It is a
// pure function of its inputs.
type Renderer interface {
	Render(cfg config.Configuration, s roster.Student, opts RenderOptions) (*Document, error)
}
