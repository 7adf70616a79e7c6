package diploma

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

// assembled returns the Result of a one-page diploma PDF.
func assembled(t *testing.T) *Result {
	t.Helper()
	a := NewAssembler(nil)
	if err := a.AddPage(testJPEG(t, color.White)); err != nil {
		t.Fatalf("AddPage: %v", err)
	}
	res, err := a.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	res.Filename = "Diploma-Ana.pdf"
	return res
}

func TestResult_Outputs(t *testing.T) {
	res := assembled(t)
	want := res.Bytes()
	if res.Len() != len(want) || res.Len() == 0 {
		t.Fatalf("Len() = %d, Bytes() has %d", res.Len(), len(want))
	}

	outputs := []struct {
		name string
		get  func(t *testing.T) []byte
	}{
		{"Base64", func(t *testing.T) []byte {
			b, err := base64.StdEncoding.DecodeString(res.Base64())
			if err != nil {
				t.Fatalf("decoding: %v", err)
			}
			return b
		}},
		{"Reader", func(t *testing.T) []byte {
			var buf bytes.Buffer
			if _, err := buf.ReadFrom(res.Reader()); err != nil {
				t.Fatalf("reading: %v", err)
			}
			return buf.Bytes()
		}},
		{"WriteTo", func(t *testing.T) []byte {
			var buf bytes.Buffer
			n, err := res.WriteTo(&buf)
			if err != nil {
				t.Fatalf("WriteTo: %v", err)
			}
			if n != int64(res.Len()) {
				t.Errorf("WriteTo wrote %d bytes, want %d", n, res.Len())
			}
			return buf.Bytes()
		}},
		{"WriteToFile", func(t *testing.T) []byte {
			path := filepath.Join(t.TempDir(), res.Filename)
			if err := res.WriteToFile(path, 0o644); err != nil {
				t.Fatalf("WriteToFile: %v", err)
			}
			b, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("reading written file: %v", err)
			}
			return b
		}},
	}
	for _, o := range outputs {
		t.Run(o.name, func(t *testing.T) {
			// Twice: outputs must not consume the content.
			for n := 0; n < 2; n++ {
				if got := o.get(t); !bytes.Equal(got, want) {
					t.Errorf("%s returned %d bytes differing from Bytes()", o.name, len(got))
				}
			}
		})
	}
}

func TestResult_Metadata(t *testing.T) {
	res := assembled(t)
	if res.ContentType != ContentTypePDF {
		t.Errorf("ContentType = %q, want %q", res.ContentType, ContentTypePDF)
	}
	if res.Pages != 1 {
		t.Errorf("Pages = %d, want 1", res.Pages)
	}
}
