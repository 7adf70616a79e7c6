package diploma

import (
	"bytes"
	"encoding/base64"
	"io"
	"os"
)

// Content types of export results.
const (
	ContentTypePDF = "application/pdf"
	ContentTypeZIP = "application/zip"
)

// Result holds a generated PDF or ZIP archive and provides helpers for
// common output formats such as raw bytes, base64 encoding, and streaming
// readers.
//
// It is safe to call its methods multiple times. The underlying data is
// never modified.
type Result struct {
	data []byte

	// Filename is the suggested download name, e.g. "Diplomas-Colegio.pdf".
	Filename string
	// ContentType is ContentTypePDF or ContentTypeZIP.
	ContentType string
	// Pages is the number of diploma pages produced. For an archive it is
	// the number of entries.
	Pages int
}

// Bytes returns the raw content.
func (r *Result) Bytes() []byte {
	return r.data
}

// Base64 returns the content encoded as a standard base64 string (RFC 4648).
func (r *Result) Base64() string {
	return base64.StdEncoding.EncodeToString(r.data)
}

// Reader returns an [*bytes.Reader] over the content.
func (r *Result) Reader() *bytes.Reader {
	return bytes.NewReader(r.data)
}

// WriteTo writes the full content to w. It implements [io.WriterTo].
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.data)
	return int64(n), err
}

// WriteToFile writes the content to the file at path, creating it if needed.
func (r *Result) WriteToFile(path string, perm os.FileMode) error {
	return os.WriteFile(path, r.data, perm)
}

// Len returns the size of the content in bytes.
func (r *Result) Len() int {
	return len(r.data)
}
