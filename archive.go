package diploma

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"time"
)

// archiveLevel is the deflate level of archive entries.
const archiveLevel = 6

// Archive bundles one PDF per student under a single folder of a ZIP file.
type Archive struct {
	buf     bytes.Buffer
	zw      *zip.Writer
	folder  string
	names   uniqueNames
	modTime time.Time
	entries int
	closed  bool
}

// NewArchive starts an archive whose entries live under folder.
func NewArchive(folder string) *Archive {
	a := &Archive{folder: folder, names: uniqueNames{}, modTime: time.Now()}
	a.zw = zip.NewWriter(&a.buf)
	a.zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, archiveLevel)
	})
	return a
}

// Add stores r as "{folder}/{stem}.pdf". Repeated stems get "-2", "-3", ...
// appended. It returns the entry name.
func (a *Archive) Add(stem string, r *Result) (string, error) {
	if a.closed {
		return "", errors.New("diploma: archive already finalized")
	}
	name := a.folder + "/" + a.names.next(stem) + ".pdf"
	w, err := a.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: a.modTime,
	})
	if err != nil {
		return "", fmt.Errorf("diploma: creating entry %s: %w", name, err)
	}
	if _, err := r.WriteTo(w); err != nil {
		return "", fmt.Errorf("diploma: writing entry %s: %w", name, err)
	}
	a.entries++
	return name, nil
}

// Len returns the number of entries added.
func (a *Archive) Len() int {
	return a.entries
}

// Finalize closes the archive and returns its bytes. It may be called once.
func (a *Archive) Finalize() (*Result, error) {
	if a.closed {
		return nil, errors.New("diploma: archive already finalized")
	}
	a.closed = true
	if err := a.zw.Close(); err != nil {
		return nil, fmt.Errorf("diploma: closing archive: %w", err)
	}
	return &Result{data: a.buf.Bytes(), ContentType: ContentTypeZIP, Pages: a.entries}, nil
}
