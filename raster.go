package diploma

import (
	"context"
	"fmt"
)

// Rasterizer captures mounted surfaces as JPEG images.
type Rasterizer struct {
	// Scale multiplies the document's pixel size.
	Scale float64
	// Quality is the JPEG quality in (0, 1].
	Quality float64
}

// DefaultRasterizer captures at twice the document size and quality 0.9.
func DefaultRasterizer() Rasterizer {
	return Rasterizer{Scale: 2, Quality: 0.9}
}

// Page is one captured diploma.
type Page struct {
	JPEG []byte
	// Width and Height are the logical pixel size of the captured document.
	Width, Height int
}

// Capture rasterizes s. Errors from the surface are returned as is; there
// is no retry.
func (r Rasterizer) Capture(ctx context.Context, s Surface) (*Page, error) {
	opts := CaptureOptions{Scale: r.Scale, Quality: r.Quality}
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("%w: scale %v, quality %v", err, r.Scale, r.Quality)
	}
	data, err := s.Capture(ctx, opts)
	if err != nil {
		return nil, err
	}
	w, h := s.Size()
	return &Page{JPEG: data, Width: w, Height: h}, nil
}
