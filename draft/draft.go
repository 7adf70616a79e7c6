// Package draft mounts diplomas without a browser.
//
// The draft Mounter ignores the HTML of a document and paints a simplified
// layout from its plain-text lines and palette with a bitmap font. It is
// meant for previews on machines without Chrome and for tests of the
// export pipeline; the output is a valid capture of the right size, not a
// faithful rendering of the design.
package draft

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	diploma "github.com/porticus-lab/go-diploma"
	"github.com/porticus-lab/go-diploma/templates"
)

// Mounter is a [diploma.Mounter] that draws in memory. The zero value is
// ready to use and safe for concurrent use.
type Mounter struct{}

var _ diploma.Mounter = (*Mounter)(nil)

// New returns a draft Mounter.
func New() *Mounter { return &Mounter{} }

// Mount implements diploma.Mounter. It never waits: there is nothing to load.
func (m *Mounter) Mount(ctx context.Context, doc *templates.Document) (diploma.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc == nil || doc.Width <= 0 || doc.Height <= 0 {
		return nil, errors.New("draft: document has no size")
	}
	return &surface{doc: doc}, nil
}

type surface struct {
	doc *templates.Document

	mu       sync.Mutex
	released bool
}

func (s *surface) Size() (int, int) { return s.doc.Width, s.doc.Height }

func (s *surface) Capture(ctx context.Context, opts diploma.CaptureOptions) ([]byte, error) {
	if opts.Scale <= 0 || opts.Quality <= 0 || opts.Quality > 1 {
		return nil, diploma.ErrInvalidCapture
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, diploma.ErrReleased
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img := paint(s.doc, opts.Scale)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(opts.JPEGQuality())); err != nil {
		return nil, fmt.Errorf("draft: encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *surface) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}

// canvas paints into a document-sized image. Positions and sizes are in
// document pixels and multiplied by scale.
type canvas struct {
	img   *image.NRGBA
	scale float64
}

func (c *canvas) px(v float64) int { return int(math.Round(v * c.scale)) }

// paint draws the layout. The document's zoom is ignored so the capture is
// always the canonical size.
func paint(doc *templates.Document, scale float64) *image.NRGBA {
	pal := doc.Palette
	primary := parseHex(pal.Primary, color.NRGBA{0x0f, 0x17, 0x2a, 0xff})
	secondary := parseHex(pal.Secondary, color.NRGBA{0xd9, 0x77, 0x06, 0xff})
	text := parseHex(pal.Text, color.NRGBA{0x1e, 0x29, 0x3b, 0xff})

	w, h := float64(doc.Width), float64(doc.Height)
	c := &canvas{
		img:   imaging.New(int(math.Round(w*scale)), int(math.Round(h*scale)), parseHex(pal.Background, color.White)),
		scale: scale,
	}

	c.frame(16, 4, primary)
	c.frame(28, 1, secondary)

	t := doc.Text
	c.centered(t.Institution, 0.13*h, 22, primary)
	c.centered(t.Motto, 0.19*h, 11, text)
	c.centered(t.Title, 0.30*h, 48, primary)
	c.centered(t.Subtitle, 0.39*h, 12, text)

	nameScale := t.NameScale
	if nameScale <= 0 {
		nameScale = 1
	}
	c.centered(t.Name, 0.50*h, 40*nameScale, primary)

	y := 0.60 * h
	for _, line := range wrap(t.Body, 80) {
		c.centered(line, y, 14, text)
		y += 22
	}

	if t.DatePlace != "" {
		c.right(t.DatePlace, w-96, 0.78*h, 11, text)
	}

	if n := len(t.Signers); n > 0 {
		slot := (w - 192) / float64(n)
		for i, sg := range t.Signers {
			cx := 96 + slot*(float64(i)+0.5)
			c.fill(cx-80, 0.88*h, 160, 1, primary)
			c.text(sg.Name, cx, 0.88*h+6, 11, primary, 0.5)
			c.text(sg.Role, cx, 0.88*h+22, 9, text, 0.5)
		}
	}
	return c.img
}

// fill paints a solid rectangle.
func (c *canvas) fill(x, y, w, h float64, col color.Color) {
	r := image.Rect(c.px(x), c.px(y), c.px(x+w), c.px(y+h))
	if r.Dy() == 0 {
		r.Max.Y = r.Min.Y + 1
	}
	draw.Draw(c.img, r, image.NewUniform(col), image.Point{}, draw.Src)
}

// frame paints a rectangular border inset from the edges.
func (c *canvas) frame(inset, thickness float64, col color.Color) {
	b := c.img.Bounds()
	w, h := float64(b.Dx())/c.scale, float64(b.Dy())/c.scale
	c.fill(inset, inset, w-2*inset, thickness, col)
	c.fill(inset, h-inset-thickness, w-2*inset, thickness, col)
	c.fill(inset, inset, thickness, h-2*inset, col)
	c.fill(w-inset-thickness, inset, thickness, h-2*inset, col)
}

func (c *canvas) centered(s string, y, size float64, col color.Color) {
	c.text(s, float64(c.img.Bounds().Dx())/c.scale/2, y, size, col, 0.5)
}

func (c *canvas) right(s string, x, y, size float64, col color.Color) {
	c.text(s, x, y, size, col, 1)
}

// text draws s with its top at y and its anchor point at x, where anchor
// 0 is left-aligned, 0.5 centered and 1 right-aligned. size is the line
// height in document pixels.
func (c *canvas) text(s string, x, y, size float64, col color.Color, anchor float64) {
	s = strings.TrimSpace(s)
	if s == "" || size <= 0 {
		return
	}
	face := basicfont.Face7x13
	adv := font.MeasureString(face, s).Ceil()
	glyphs := image.NewNRGBA(image.Rect(0, 0, adv, face.Height))
	d := font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(s)

	k := size * c.scale / float64(face.Height)
	tw, th := int(math.Round(float64(adv)*k)), int(math.Round(float64(face.Height)*k))
	if tw < 1 || th < 1 {
		return
	}
	scaled := imaging.Resize(glyphs, tw, th, imaging.NearestNeighbor)

	x0 := c.px(x) - int(math.Round(float64(tw)*anchor))
	y0 := c.px(y)
	draw.Draw(c.img, image.Rect(x0, y0, x0+tw, y0+th), scaled, image.Point{}, draw.Over)
}

// wrap breaks s into lines of at most width runes, on spaces where possible.
func wrap(s string, width int) []string {
	var lines []string
	var cur []rune
	for _, word := range strings.Fields(s) {
		wr := []rune(word)
		if len(cur) > 0 && len(cur)+1+len(wr) > width {
			lines = append(lines, string(cur))
			cur = cur[:0]
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, wr...)
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}

// parseHex parses #rgb or #rrggbb, returning def when s is neither.
func parseHex(s string, def color.Color) color.Color {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return def
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return def
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}
