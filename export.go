package diploma

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/porticus-lab/go-diploma/config"
	"github.com/porticus-lab/go-diploma/roster"
	"github.com/porticus-lab/go-diploma/templates"
)

// Mode selects what an export produces.
type Mode string

const (
	// ModeSingle exports one student as a one-page PDF.
	ModeSingle Mode = "single"
	// ModeMultipage exports every valid student as one PDF, one page each.
	ModeMultipage Mode = "multipage"
	// ModeArchive exports every valid student as its own PDF, bundled in a
	// ZIP archive.
	ModeArchive Mode = "archive"
)

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSingle, ModeMultipage, ModeArchive:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Request is one export.
type Request struct {
	Mode   Mode
	Config config.Configuration
	// Students in roster order. Records with blank names are skipped by
	// multipage and archive exports.
	Students roster.Roster
	// Index is the student a single export renders.
	Index int
}

// ProgressFunc receives the number of students processed and the total.
type ProgressFunc func(current, total int)

// Exporter runs the render, mount, capture and assemble pipeline for a
// whole roster.
type Exporter struct {
	renderer templates.Renderer
	mounter  Mounter
	cfg      exportConfig
}

// NewExporter returns an Exporter rendering with r and mounting with m.
func NewExporter(r templates.Renderer, m Mounter, opts ...ExportOption) *Exporter {
	cfg := defaultExportConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Exporter{renderer: r, mounter: m, cfg: cfg}
}

// Export runs req to completion. The first error aborts the export and no
// partial result is returned. Cancelling ctx stops the export before the
// next student and returns an error matching [ErrCancelled].
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	return e.export(ctx, req, e.cfg.progress)
}

func (e *Exporter) export(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	start := time.Now()
	log := e.cfg.logger.With(zap.String("mode", string(req.Mode)))

	// The export only ever sees its own copy of the configuration.
	req.Config = req.Config.Snapshot()

	res, err := e.dispatch(ctx, req, progress)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
			log.Info("export cancelled", zap.Duration("elapsed", time.Since(start)))
			return nil, err
		}
		log.Error("export failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}
	log.Info("export completed",
		zap.String("file", res.Filename),
		zap.Int("pages", res.Pages),
		zap.Int("bytes", res.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (e *Exporter) dispatch(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	if progress == nil {
		progress = func(int, int) {}
	}
	switch req.Mode {
	case ModeSingle:
		return e.single(ctx, req, progress)
	case ModeMultipage:
		return e.multipage(ctx, req.Config, exportable(req.Students), progress)
	case ModeArchive:
		students := req.Students.Valid()
		if len(students) == 0 {
			return e.multipage(ctx, req.Config, exportable(nil), progress)
		}
		return e.archive(ctx, req.Config, students, progress)
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
}

// exportable returns the valid students, or the placeholder record when
// there are none.
func exportable(r roster.Roster) roster.Roster {
	if v := r.Valid(); len(v) > 0 {
		return v
	}
	return roster.Roster{roster.Placeholder()}
}

func (e *Exporter) single(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	s, index := roster.Placeholder(), 0
	if len(req.Students) > 0 {
		if req.Index < 0 || req.Index >= len(req.Students) {
			return nil, fmt.Errorf("%w: %d of %d", ErrInvalidIndex, req.Index, len(req.Students))
		}
		s, index = req.Students[req.Index], req.Index
	}

	progress(0, 1)
	res, err := e.multipage(ctx, req.Config, roster.Roster{s}, func(int, int) {})
	if err != nil {
		return nil, err
	}
	progress(1, 1)
	res.Filename = "Diploma-" + StudentFilename(s.Name, index) + ".pdf"
	return res, nil
}

func (e *Exporter) multipage(ctx context.Context, cfg config.Configuration, students roster.Roster, progress ProgressFunc) (*Result, error) {
	total := len(students)
	progress(0, total)

	asm := NewAssembler(&e.cfg.page)
	for i, s := range students {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pg, err := e.capture(ctx, cfg, i, s)
		if err != nil {
			return nil, err
		}
		if err := asm.AddPage(pg.JPEG); err != nil {
			return nil, &StageError{Stage: StageAssemble, Index: i, Student: s.Name, Err: err}
		}
		progress(i+1, total)
	}

	res, err := asm.Finalize()
	if err != nil {
		return nil, &StageError{Stage: StageFinalize, Index: -1, Err: err}
	}
	res.Filename = "Diplomas-" + InstitutionFilename(cfg.InstitutionName) + ".pdf"
	return res, nil
}

func (e *Exporter) archive(ctx context.Context, cfg config.Configuration, students roster.Roster, progress ProgressFunc) (*Result, error) {
	total := len(students)
	progress(0, total)

	docs := make([]*Result, total)
	if e.cfg.concurrency > 1 {
		if err := e.renderParallel(ctx, cfg, students, docs, progress); err != nil {
			return nil, err
		}
	} else {
		for i, s := range students {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			doc, err := e.document(ctx, cfg, i, s)
			if err != nil {
				return nil, err
			}
			docs[i] = doc
			progress(i+1, total)
		}
	}

	label := "Diplomas-" + InstitutionFilename(cfg.InstitutionName)
	arc := NewArchive(label)
	for i, s := range students {
		if _, err := arc.Add(StudentFilename(s.Name, i), docs[i]); err != nil {
			return nil, &StageError{Stage: StageAssemble, Index: i, Student: s.Name, Err: err}
		}
	}
	res, err := arc.Finalize()
	if err != nil {
		return nil, &StageError{Stage: StageFinalize, Index: -1, Err: err}
	}
	res.Filename = label + ".zip"
	return res, nil
}

// renderParallel fills docs using up to concurrency workers. Progress
// counts completions, which may finish out of order.
func (e *Exporter) renderParallel(ctx context.Context, cfg config.Configuration, students roster.Roster, docs []*Result, progress ProgressFunc) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.concurrency)

	var (
		mu   sync.Mutex
		done int
	)
	for i, s := range students {
		i, s := i, s
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := e.document(gctx, cfg, i, s)
			if err != nil {
				return err
			}
			docs[i] = doc

			mu.Lock()
			done++
			progress(done, len(students))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// A cancelled parent can stop the loop before any worker fails.
	return ctx.Err()
}

// document renders one student into a standalone one-page PDF.
func (e *Exporter) document(ctx context.Context, cfg config.Configuration, i int, s roster.Student) (*Result, error) {
	pg, err := e.capture(ctx, cfg, i, s)
	if err != nil {
		return nil, err
	}
	asm := NewAssembler(&e.cfg.page)
	if err := asm.AddPage(pg.JPEG); err != nil {
		return nil, &StageError{Stage: StageAssemble, Index: i, Student: s.Name, Err: err}
	}
	doc, err := asm.Finalize()
	if err != nil {
		return nil, &StageError{Stage: StageFinalize, Index: i, Student: s.Name, Err: err}
	}
	return doc, nil
}

// capture renders, mounts and rasterizes one student. The surface is
// released before capture returns.
func (e *Exporter) capture(ctx context.Context, cfg config.Configuration, i int, s roster.Student) (*Page, error) {
	doc, err := e.renderer.Render(cfg, s, templates.RenderOptions{})
	if err != nil {
		return nil, &StageError{Stage: StageRender, Index: i, Student: s.Name, Err: err}
	}
	surf, err := e.mounter.Mount(ctx, doc)
	if err != nil {
		return nil, &StageError{Stage: StageMount, Index: i, Student: s.Name, Err: err}
	}
	defer surf.Release()

	pg, err := e.cfg.raster.Capture(ctx, surf)
	if err != nil {
		return nil, &StageError{Stage: StageCapture, Index: i, Student: s.Name, Err: err}
	}
	return pg, nil
}

// IsCancelled reports whether err came from a cancelled export.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
