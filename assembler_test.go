package diploma

import (
	"archive/zip"
	"bytes"
	"image/color"
	"io"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/porticus-lab/go-diploma/pdfinfo"
)

func testJPEG(t *testing.T, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(112, 79, c), imaging.JPEG); err != nil {
		t.Fatalf("encoding jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestAssembler_Pages(t *testing.T) {
	a := NewAssembler(nil)
	if a.Pages() != 0 {
		t.Errorf("new assembler has %d pages", a.Pages())
	}
	for _, c := range []color.Color{color.White, color.Black, color.Gray{0x80}} {
		if err := a.AddPage(testJPEG(t, c)); err != nil {
			t.Fatalf("AddPage: %v", err)
		}
	}
	res, err := a.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !bytes.HasPrefix(res.Bytes(), []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
	if res.Pages != 3 || res.ContentType != ContentTypePDF {
		t.Errorf("result = %d pages, %q", res.Pages, res.ContentType)
	}

	info, err := pdfinfo.InspectBytes(res.Bytes())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Pages != 3 {
		t.Errorf("pdf pages = %d, want 3", info.Pages)
	}
	w, h := info.Sizes[0].Millimeters()
	if !almostEqual(w, 297, 0.5) || !almostEqual(h, 210, 0.5) {
		t.Errorf("page size = %.1fx%.1f mm, want 297x210", w, h)
	}

	if _, err := a.Finalize(); err == nil {
		t.Error("second Finalize succeeded")
	}
	if err := a.AddPage(testJPEG(t, color.White)); err == nil {
		t.Error("AddPage after Finalize succeeded")
	}
}

func TestAssembler_Portrait(t *testing.T) {
	a := NewAssembler(&PageConfig{Size: A5, Orientation: Portrait})
	if err := a.AddPage(testJPEG(t, color.White)); err != nil {
		t.Fatalf("AddPage: %v", err)
	}
	res, err := a.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	info, err := pdfinfo.InspectBytes(res.Bytes())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	w, h := info.Sizes[0].Millimeters()
	if !almostEqual(w, 148, 0.5) || !almostEqual(h, 210, 0.5) {
		t.Errorf("page size = %.1fx%.1f mm, want 148x210", w, h)
	}
}

func TestAssembler_BadImage(t *testing.T) {
	a := NewAssembler(nil)
	if err := a.AddPage([]byte("not a jpeg")); err == nil {
		t.Error("AddPage accepted garbage")
	}
}

func TestArchive(t *testing.T) {
	arc := NewArchive("Diplomas-Sol")
	pdf := assembled(t)
	for _, stem := range []string{"Ana", "Lu", "Ana"} {
		if _, err := arc.Add(stem, pdf); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if arc.Len() != 3 {
		t.Errorf("Len = %d, want 3", arc.Len())
	}
	res, err := arc.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.ContentType != ContentTypeZIP || res.Pages != 3 {
		t.Errorf("result = %q, %d entries", res.ContentType, res.Pages)
	}

	zr, err := zip.NewReader(res.Reader(), int64(res.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.Method != zip.Deflate {
			t.Errorf("%s: method %d, want deflate", f.Name, f.Method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if !bytes.Equal(data, pdf.Bytes()) {
			t.Errorf("%s: content differs", f.Name)
		}
	}
	if got := strings.Join(names, ","); got != "Diplomas-Sol/Ana.pdf,Diplomas-Sol/Lu.pdf,Diplomas-Sol/Ana-2.pdf" {
		t.Errorf("entries = %s", got)
	}

	if _, err := arc.Add("late", pdf); err == nil {
		t.Error("Add after Finalize succeeded")
	}
}
