// Package pdfinfo inspects generated diplomas: page count and page size of
// a PDF, and the same for every PDF inside a ZIP archive.
package pdfinfo

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// pdfcpu would otherwise create a config directory under the user's home.
	api.DisableConfigDir()
}

// PageSize is a page's media box in PDF points (1/72 inch).
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Millimeters returns the size in millimeters.
func (p PageSize) Millimeters() (w, h float64) {
	const mmPerPoint = 25.4 / 72
	return p.Width * mmPerPoint, p.Height * mmPerPoint
}

// Landscape reports whether the page is wider than tall.
func (p PageSize) Landscape() bool { return p.Width > p.Height }

// Info describes one PDF.
type Info struct {
	Pages int        `json:"pages"`
	Sizes []PageSize `json:"sizes"`
}

// Entry is one file of an archive.
type Entry struct {
	Name string `json:"name"`
	Info Info   `json:"info"`
}

func configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Inspect reads and validates a PDF.
func Inspect(rs io.ReadSeeker) (Info, error) {
	ctx, err := api.ReadContext(rs, configuration())
	if err != nil {
		return Info{}, fmt.Errorf("pdfinfo: reading pdf: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return Info{}, fmt.Errorf("pdfinfo: validating pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return Info{}, fmt.Errorf("pdfinfo: counting pages: %w", err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return Info{}, fmt.Errorf("pdfinfo: reading page sizes: %w", err)
	}

	info := Info{Pages: ctx.PageCount, Sizes: make([]PageSize, 0, len(dims))}
	for _, d := range dims {
		info.Sizes = append(info.Sizes, PageSize{Width: d.Width, Height: d.Height})
	}
	return info, nil
}

// InspectBytes is Inspect over an in-memory PDF.
func InspectBytes(data []byte) (Info, error) {
	return Inspect(bytes.NewReader(data))
}

// InspectArchive inspects every PDF entry of a ZIP archive, in archive
// order. Directory entries are skipped; any other file is an error.
func InspectArchive(data []byte) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdfinfo: reading archive: %w", err)
	}

	var entries []Entry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !strings.EqualFold(path.Ext(f.Name), ".pdf") {
			return nil, fmt.Errorf("pdfinfo: %s: not a pdf", f.Name)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("pdfinfo: opening %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("pdfinfo: reading %s: %w", f.Name, err)
		}
		info, err := InspectBytes(b)
		if err != nil {
			return nil, fmt.Errorf("pdfinfo: %s: %w", f.Name, err)
		}
		entries = append(entries, Entry{Name: f.Name, Info: info})
	}
	return entries, nil
}

// IsArchive reports whether data starts like a ZIP file.
func IsArchive(data []byte) bool {
	return bytes.HasPrefix(data, []byte("PK\x03\x04"))
}
