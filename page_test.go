package diploma

import (
	"math"
	"testing"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestPageConfigResolved(t *testing.T) {
	tests := []struct {
		name string
		in   *PageConfig
		want PageConfig
	}{
		{"nil", nil, DefaultPageConfig()},
		{"zero", &PageConfig{}, PageConfig{Size: A4, Orientation: Landscape}},
		{"half size", &PageConfig{Size: PageSize{Width: 21}}, PageConfig{Size: A4}},
		{"explicit", &PageConfig{Size: Letter, Orientation: Portrait}, PageConfig{Size: Letter, Orientation: Portrait}},
	}
	for _, tt := range tests {
		if got := tt.in.resolved(); got != tt.want {
			t.Errorf("%s: resolved() = %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestPaperDimensions(t *testing.T) {
	tests := []struct {
		name string
		pc   PageConfig
		w, h float64
	}{
		{"A4 landscape", PageConfig{Size: A4}, 297, 210},
		{"A4 portrait", PageConfig{Size: A4, Orientation: Portrait}, 210, 297},
		{"A3 landscape", PageConfig{Size: A3}, 420, 297},
		{"A5 landscape", PageConfig{Size: A5}, 210, 148},
		{"Letter landscape", PageConfig{Size: Letter}, 279.4, 215.9},
		{"Legal portrait", PageConfig{Size: Legal, Orientation: Portrait}, 215.9, 355.6},
		// A size given wider than tall still follows Orientation.
		{"rotated size portrait", PageConfig{Size: PageSize{Width: 29.7, Height: 21}, Orientation: Portrait}, 210, 297},
	}
	for _, tt := range tests {
		w, h := tt.pc.paperDimensions()
		if !almostEqual(w, tt.w, 0.01) || !almostEqual(h, tt.h, 0.01) {
			t.Errorf("%s: %vx%v mm, want %vx%v", tt.name, w, h, tt.w, tt.h)
		}
	}
}

func TestPaperDimensions_NilIsPixelRatio(t *testing.T) {
	// The default page keeps the 1123x794 surface ratio.
	var pc *PageConfig
	w, h := pc.paperDimensions()
	if got, want := w/h, 1123.0/794.0; !almostEqual(got, want, 0.002) {
		t.Errorf("page ratio = %.4f, surface ratio = %.4f", got, want)
	}
}
