package diploma_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	diploma "github.com/porticus-lab/go-diploma"
	"github.com/porticus-lab/go-diploma/config"
	"github.com/porticus-lab/go-diploma/draft"
	"github.com/porticus-lab/go-diploma/pdfinfo"
	"github.com/porticus-lab/go-diploma/roster"
	"github.com/porticus-lab/go-diploma/templates"
)

// recorder mounts with the draft backend and records what it was asked to
// mount. failOn makes the mount of that student name fail; onMount runs
// before every mount.
type recorder struct {
	mu      sync.Mutex
	names   []string
	signers []string
	open    int
	failOn  string
	onMount func(name string)
}

func (r *recorder) Mount(ctx context.Context, doc *templates.Document) (diploma.Surface, error) {
	if r.onMount != nil {
		r.onMount(doc.Text.Name)
	}
	r.mu.Lock()
	r.names = append(r.names, doc.Text.Name)
	if len(doc.Text.Signers) > 0 {
		r.signers = append(r.signers, doc.Text.Signers[0].Name)
	}
	r.mu.Unlock()
	if doc.Text.Name == r.failOn {
		return nil, errors.New("boom")
	}
	s, err := draft.New().Mount(ctx, doc)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.open++
	r.mu.Unlock()
	return &trackedSurface{Surface: s, r: r}, nil
}

func (r *recorder) mounted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func (r *recorder) openSurfaces() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

type trackedSurface struct {
	diploma.Surface
	r    *recorder
	once sync.Once
}

func (s *trackedSurface) Release() {
	s.once.Do(func() {
		s.r.mu.Lock()
		s.r.open--
		s.r.mu.Unlock()
	})
	s.Surface.Release()
}

// fastRaster keeps test captures small.
var fastRaster = diploma.WithRasterizer(diploma.Rasterizer{Scale: 0.5, Quality: 0.6})

func newTestExporter(m diploma.Mounter, opts ...diploma.ExportOption) *diploma.Exporter {
	return diploma.NewExporter(templates.MustNewRenderer(), m, append([]diploma.ExportOption{fastRaster}, opts...)...)
}

func testConfig() config.Configuration {
	c := config.Defaults()
	c.InstitutionName = "Colegio Sol"
	return c
}

func students(names ...string) roster.Roster {
	out := make(roster.Roster, 0, len(names))
	for _, n := range names {
		out = append(out, roster.New(n))
	}
	return out
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"single", "MultiPage", " archive "} {
		if _, err := diploma.ParseMode(s); err != nil {
			t.Errorf("ParseMode(%q): %v", s, err)
		}
	}
	if _, err := diploma.ParseMode("zip"); !errors.Is(err, diploma.ErrInvalidMode) {
		t.Errorf("ParseMode(zip) = %v, want ErrInvalidMode", err)
	}
}

func TestExport_Multipage(t *testing.T) {
	rec := &recorder{}
	var progress [][2]int
	exp := newTestExporter(rec, diploma.WithProgress(func(cur, total int) {
		progress = append(progress, [2]int{cur, total})
	}))

	res, err := exp.Export(context.Background(), diploma.Request{
		Mode:     diploma.ModeMultipage,
		Config:   testConfig(),
		Students: students("Ana Ruiz", "  ", "Lu"),
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if res.Filename != "Diplomas-Colegio Sol.pdf" {
		t.Errorf("Filename = %q", res.Filename)
	}
	if res.ContentType != diploma.ContentTypePDF {
		t.Errorf("ContentType = %q", res.ContentType)
	}
	if res.Pages != 2 {
		t.Errorf("Pages = %d, want 2", res.Pages)
	}

	info, err := pdfinfo.InspectBytes(res.Bytes())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Pages != 2 {
		t.Errorf("pdf has %d pages, want 2", info.Pages)
	}
	for i, sz := range info.Sizes {
		w, h := sz.Millimeters()
		if w < 296 || w > 298 || h < 209 || h > 211 {
			t.Errorf("page %d is %.1fx%.1f mm, want 297x210", i+1, w, h)
		}
	}

	if got := strings.Join(rec.mounted(), "|"); got != "Ana Ruiz|Lu" {
		t.Errorf("mounted %q, want roster order without blanks", got)
	}
	if n := rec.openSurfaces(); n != 0 {
		t.Errorf("%d surfaces left open", n)
	}
	want := [][2]int{{0, 2}, {1, 2}, {2, 2}}
	if len(progress) != len(want) {
		t.Fatalf("progress = %v, want %v", progress, want)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Errorf("progress[%d] = %v, want %v", i, progress[i], want[i])
		}
	}
}

func TestExport_EmptyRosterUsesPlaceholder(t *testing.T) {
	for _, mode := range []diploma.Mode{diploma.ModeSingle, diploma.ModeMultipage, diploma.ModeArchive} {
		t.Run(string(mode), func(t *testing.T) {
			rec := &recorder{}
			res, err := newTestExporter(rec).Export(context.Background(), diploma.Request{
				Mode:   mode,
				Config: testConfig(),
			})
			if err != nil {
				t.Fatalf("Export: %v", err)
			}
			if got := rec.mounted(); len(got) != 1 || got[0] != "NOMBRE ESTUDIANTE" {
				t.Errorf("mounted %v, want the placeholder", got)
			}
			if res.ContentType != diploma.ContentTypePDF {
				t.Errorf("ContentType = %q, want a PDF", res.ContentType)
			}
			info, err := pdfinfo.InspectBytes(res.Bytes())
			if err != nil {
				t.Fatalf("Inspect: %v", err)
			}
			if info.Pages != 1 {
				t.Errorf("pages = %d, want 1", info.Pages)
			}
		})
	}
}

func TestExport_Single(t *testing.T) {
	rec := &recorder{}
	res, err := newTestExporter(rec).Export(context.Background(), diploma.Request{
		Mode:     diploma.ModeSingle,
		Config:   testConfig(),
		Students: students("Ana Ruiz", "José/Test"),
		Index:    1,
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Filename != "Diploma-JoseTest.pdf" {
		t.Errorf("Filename = %q", res.Filename)
	}
	if got := rec.mounted(); len(got) != 1 || got[0] != "José/Test" {
		t.Errorf("mounted %v", got)
	}

	_, err = newTestExporter(rec).Export(context.Background(), diploma.Request{
		Mode:     diploma.ModeSingle,
		Config:   testConfig(),
		Students: students("Ana Ruiz"),
		Index:    3,
	})
	if !errors.Is(err, diploma.ErrInvalidIndex) {
		t.Errorf("out of range index: err = %v, want ErrInvalidIndex", err)
	}
}

func TestExport_Archive(t *testing.T) {
	for _, n := range []int{1, 3} {
		rec := &recorder{}
		res, err := newTestExporter(rec, diploma.WithConcurrency(n)).Export(context.Background(), diploma.Request{
			Mode:     diploma.ModeArchive,
			Config:   testConfig(),
			Students: students("José/Test", "Ana Ruiz", "", "Ana Ruiz", "???"),
		})
		if err != nil {
			t.Fatalf("concurrency %d: Export: %v", n, err)
		}
		if res.Filename != "Diplomas-Colegio Sol.zip" {
			t.Errorf("Filename = %q", res.Filename)
		}
		if res.ContentType != diploma.ContentTypeZIP {
			t.Errorf("ContentType = %q", res.ContentType)
		}

		entries, err := pdfinfo.InspectArchive(res.Bytes())
		if err != nil {
			t.Fatalf("InspectArchive: %v", err)
		}
		want := []string{
			"Diplomas-Colegio Sol/JoseTest.pdf",
			"Diplomas-Colegio Sol/Ana Ruiz.pdf",
			"Diplomas-Colegio Sol/Ana Ruiz-2.pdf",
			"Diplomas-Colegio Sol/Estudiante-4.pdf",
		}
		if len(entries) != len(want) {
			t.Fatalf("concurrency %d: %d entries, want %d", n, len(entries), len(want))
		}
		for i, e := range entries {
			if e.Name != want[i] {
				t.Errorf("concurrency %d: entry %d = %q, want %q", n, i, e.Name, want[i])
			}
			if e.Info.Pages != 1 {
				t.Errorf("entry %s has %d pages, want 1", e.Name, e.Info.Pages)
			}
		}
		if n := rec.openSurfaces(); n != 0 {
			t.Errorf("%d surfaces left open", n)
		}
	}
}

func TestExport_FailFast(t *testing.T) {
	rec := &recorder{failOn: "Lu"}
	res, err := newTestExporter(rec).Export(context.Background(), diploma.Request{
		Mode:     diploma.ModeMultipage,
		Config:   testConfig(),
		Students: students("Ana Ruiz", "Lu", "Eva"),
	})
	if res != nil {
		t.Error("failed export returned a result")
	}
	var serr *diploma.StageError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want *StageError", err)
	}
	if serr.Stage != diploma.StageMount || serr.Index != 1 || serr.Student != "Lu" {
		t.Errorf("StageError = %+v", serr)
	}
	if diploma.IsCancelled(err) {
		t.Error("failure reported as cancellation")
	}
	if got := rec.mounted(); len(got) != 2 {
		t.Errorf("mounted %v, want to stop after the failure", got)
	}
	if n := rec.openSurfaces(); n != 0 {
		t.Errorf("%d surfaces left open", n)
	}
}

func TestExport_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{onMount: func(name string) {
		if name == "Lu" {
			cancel()
		}
	}}

	_, err := newTestExporter(rec).Export(ctx, diploma.Request{
		Mode:     diploma.ModeArchive,
		Config:   testConfig(),
		Students: students("Ana Ruiz", "Lu", "Eva"),
	})
	if !errors.Is(err, diploma.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	for _, n := range rec.mounted() {
		if n == "Eva" {
			t.Error("export continued after cancellation")
		}
	}
	if n := rec.openSurfaces(); n != 0 {
		t.Errorf("%d surfaces left open", n)
	}
}

func TestExport_InvalidRasterizer(t *testing.T) {
	exp := diploma.NewExporter(templates.MustNewRenderer(), draft.New(),
		diploma.WithRasterizer(diploma.Rasterizer{Scale: 2, Quality: 0}))
	_, err := exp.Export(context.Background(), diploma.Request{Mode: diploma.ModeSingle, Config: testConfig()})
	if !errors.Is(err, diploma.ErrInvalidCapture) {
		t.Errorf("err = %v, want ErrInvalidCapture", err)
	}
}

func TestExport_SnapshotsConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Signers[0].Name = "Rosa"
	var once sync.Once
	rec := &recorder{onMount: func(string) {
		once.Do(func() { cfg.Signers[0].Name = "changed mid-export" })
	}}
	_, err := newTestExporter(rec).Export(context.Background(), diploma.Request{
		Mode:     diploma.ModeMultipage,
		Config:   cfg,
		Students: students("Ana Ruiz", "Lu"),
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i, name := range rec.signers {
		if name != "Rosa" {
			t.Errorf("mount %d saw signer %q, want the value at export start", i, name)
		}
	}
}

func TestExport_Repeatable(t *testing.T) {
	for _, mode := range []diploma.Mode{diploma.ModeMultipage, diploma.ModeArchive} {
		t.Run(string(mode), func(t *testing.T) {
			req := diploma.Request{
				Mode:     mode,
				Config:   testConfig(),
				Students: students("Ana Ruiz", "", "Lu", "Eva"),
			}
			var (
				orders []string
				pages  []int
			)
			for n := 0; n < 2; n++ {
				rec := &recorder{}
				res, err := newTestExporter(rec).Export(context.Background(), req)
				if err != nil {
					t.Fatalf("Export: %v", err)
				}
				n := 0
				if mode == diploma.ModeArchive {
					entries, err := pdfinfo.InspectArchive(res.Bytes())
					if err != nil {
						t.Fatalf("InspectArchive: %v", err)
					}
					for _, e := range entries {
						n += e.Info.Pages
					}
				} else {
					info, err := pdfinfo.InspectBytes(res.Bytes())
					if err != nil {
						t.Fatalf("Inspect: %v", err)
					}
					n = info.Pages
				}
				orders = append(orders, strings.Join(rec.mounted(), "|"))
				pages = append(pages, n)
			}
			if pages[0] != 3 || pages[1] != pages[0] {
				t.Errorf("pages = %v, want 3 both times", pages)
			}
			if orders[0] != "Ana Ruiz|Lu|Eva" || orders[1] != orders[0] {
				t.Errorf("mount order = %q, want the same roster order both times", orders)
			}
		})
	}
}
