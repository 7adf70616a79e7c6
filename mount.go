package diploma

import (
	"context"

	"github.com/porticus-lab/go-diploma/templates"
)

// Mounter lays out a rendered document off-screen at its exact pixel size.
//
// Mount returns once the layout has settled: images are loaded or have
// failed, and fonts are ready. The caller must Release the returned Surface
// on every path, including after a failed capture.
type Mounter interface {
	Mount(ctx context.Context, doc *templates.Document) (Surface, error)
}

// Surface is one mounted document.
type Surface interface {
	// Size returns the logical pixel size of the document.
	Size() (width, height int)

	// Capture encodes the untransformed document as a JPEG of
	// Size()×opts.Scale pixels.
	Capture(ctx context.Context, opts CaptureOptions) ([]byte, error)

	// Release discards the surface. It is synchronous and idempotent.
	Release()
}

// CaptureOptions control one capture.
type CaptureOptions struct {
	// Scale multiplies the logical pixel size. 2 doubles linear resolution.
	Scale float64
	// Quality is the JPEG quality in (0, 1].
	Quality float64
}

func (o CaptureOptions) validate() error {
	if o.Scale <= 0 || o.Quality <= 0 || o.Quality > 1 {
		return ErrInvalidCapture
	}
	return nil
}

// JPEGQuality maps Quality onto the 1–100 scale of JPEG encoders.
func (o CaptureOptions) JPEGQuality() int {
	q := int(o.Quality*100 + 0.5)
	if q < 1 {
		q = 1
	}
	if q > 100 {
		q = 100
	}
	return q
}
