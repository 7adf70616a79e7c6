package diploma

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
)

// Assembler accumulates captured pages into one PDF document.
//
// The document starts with one empty page which the first AddPage draws
// into; every later AddPage appends a new page first. Pages appear in the
// order AddPage was called.
type Assembler struct {
	pdf       *fpdf.Fpdf
	w, h      float64
	pages     int
	finalized bool
}

// NewAssembler opens a document with pages of the given config. A nil
// config means A4 landscape.
func NewAssembler(pc *PageConfig) *Assembler {
	w, h := pc.paperDimensions()
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCompression(true)
	pdf.AddPage()
	return &Assembler{pdf: pdf, w: w, h: h}
}

// AddPage draws a JPEG image filling a whole page.
func (a *Assembler) AddPage(img []byte) error {
	if a.finalized {
		return errors.New("diploma: assembler already finalized")
	}
	if a.pages > 0 {
		a.pdf.AddPage()
	}
	name := "page-" + strconv.Itoa(a.pages+1)
	opt := fpdf.ImageOptions{ImageType: "JPG"}
	a.pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(img))
	a.pdf.ImageOptions(name, 0, 0, a.w, a.h, false, opt, 0, "")
	if err := a.pdf.Error(); err != nil {
		return fmt.Errorf("diploma: adding page %d: %w", a.pages+1, err)
	}
	a.pages++
	return nil
}

// Pages returns the number of images drawn so far.
func (a *Assembler) Pages() int {
	return a.pages
}

// Finalize serializes the document. It may be called once.
func (a *Assembler) Finalize() (*Result, error) {
	if a.finalized {
		return nil, errors.New("diploma: assembler already finalized")
	}
	a.finalized = true

	var buf bytes.Buffer
	if err := a.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("diploma: writing pdf: %w", err)
	}
	return &Result{data: buf.Bytes(), ContentType: ContentTypePDF, Pages: a.pages}, nil
}
