package diploma

// PageSize represents paper dimensions in centimeters.
type PageSize struct {
	Width  float64 // Width in centimeters.
	Height float64 // Height in centimeters.
}

// Standard paper sizes.
var (
	A3     = PageSize{Width: 29.7, Height: 42.0}
	A4     = PageSize{Width: 21.0, Height: 29.7}
	A5     = PageSize{Width: 14.8, Height: 21.0}
	Letter = PageSize{Width: 21.59, Height: 27.94}
	Legal  = PageSize{Width: 21.59, Height: 35.56}
)

// Orientation represents the page orientation.
type Orientation int

const (
	// Landscape is the default horizontal orientation.
	Landscape Orientation = iota
	// Portrait rotates the page to vertical orientation.
	Portrait
)

// PageConfig controls the physical page of generated PDFs. Every page holds
// one image drawn edge to edge, so there are no margins.
//
// A zero-value PageConfig resolves to A4 landscape, 297 × 210 mm.
type PageConfig struct {
	// Size specifies the paper size. Defaults to A4.
	Size PageSize

	// Orientation specifies landscape or portrait. Defaults to Landscape.
	Orientation Orientation
}

// DefaultPageConfig returns A4 landscape.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Size:        A4,
		Orientation: Landscape,
	}
}

// resolved returns a PageConfig with all zero values replaced by defaults.
func (p *PageConfig) resolved() PageConfig {
	d := DefaultPageConfig()
	if p == nil {
		return d
	}
	r := *p
	if r.Size.Width <= 0 || r.Size.Height <= 0 {
		r.Size = d.Size
	}
	return r
}

// cmToMillimeters converts centimeters to millimeters.
func cmToMillimeters(cm float64) float64 {
	return cm * 10
}

// paperDimensions returns the paper width and height in millimeters,
// accounting for orientation.
func (p *PageConfig) paperDimensions() (width, height float64) {
	r := p.resolved()
	w := cmToMillimeters(r.Size.Width)
	h := cmToMillimeters(r.Size.Height)
	if w > h {
		w, h = h, w
	}
	if r.Orientation == Landscape {
		return h, w
	}
	return w, h
}
