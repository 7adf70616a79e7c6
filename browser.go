package diploma

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"

	"github.com/porticus-lab/go-diploma/templates"
)

// Browser mounts documents in a headless Chrome.
//
// A Browser manages one browser process that is reused across mounts; each
// mount gets its own tab. It is safe for concurrent use.
//
// Call [Browser.Close] when the Browser is no longer needed to release
// browser resources.
type Browser struct {
	cfg           browserConfig
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

var _ Mounter = (*Browser)(nil)

// NewBrowser starts a headless browser with the given options. The caller
// must call [Browser.Close] when finished.
func NewBrowser(opts ...Option) (*Browser, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.chromePath == "" && cfg.autoDownload {
		path, err := resolveBrowser()
		if err != nil {
			return nil, err
		}
		cfg.chromePath = path
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("headless", cfg.headless),
	)
	if cfg.chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(cfg.chromePath))
	}
	if cfg.noSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so errors surface at creation time.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("diploma: starting browser: %w", err)
	}
	cfg.logger.Debug("browser started", zap.String("chrome", cfg.chromePath))

	return &Browser{
		cfg:           cfg,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close releases all resources held by the Browser, including the
// browser process. Close is idempotent.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.browserCancel()
	b.allocCancel()
	b.cfg.logger.Debug("browser closed")
	return nil
}

// settleScript is truthy once the page has loaded, at least the expected
// number of images exist and every image and font has finished loading.
const settleScript = `document.readyState === 'complete' &&
	document.images.length >= %d &&
	Array.from(document.images).every(i => i.complete) &&
	document.fonts.status === 'loaded'`

const frameScript = `new Promise(r => requestAnimationFrame(() => requestAnimationFrame(() => r(true))))`

// Mount writes the document to a temporary file, opens it in a new tab
// sized to the document and waits for it to settle.
func (b *Browser) Mount(ctx context.Context, doc *templates.Document) (Surface, error) {
	if err := b.checkClosed(); err != nil {
		return nil, err
	}

	f, err := os.CreateTemp("", "diploma-*.html")
	if err != nil {
		return nil, fmt.Errorf("diploma: creating temp file: %w", err)
	}
	name := f.Name()
	if _, err := f.WriteString(doc.HTML); err != nil {
		f.Close()
		os.Remove(name)
		return nil, fmt.Errorf("diploma: writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return nil, fmt.Errorf("diploma: closing temp file: %w", err)
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		os.Remove(name)
		return nil, fmt.Errorf("diploma: resolving path: %w", err)
	}

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	runCtx, cancel := tabCtx, tabCancel
	if b.cfg.timeout > 0 {
		var timeoutCancel context.CancelFunc
		runCtx, timeoutCancel = context.WithTimeout(tabCtx, b.cfg.timeout)
		cancel = func() {
			timeoutCancel()
			tabCancel()
		}
	}
	s := &chromeSurface{
		ctx:    runCtx,
		cancel: cancel,
		stop:   context.AfterFunc(ctx, cancel),
		path:   abs,
		width:  doc.Width,
		height: doc.Height,
	}

	if err := chromedp.Run(runCtx,
		emulation.SetDeviceMetricsOverride(int64(doc.Width), int64(doc.Height), 1, false),
		chromedp.Navigate("file://"+abs),
		chromedp.WaitReady("#diploma", chromedp.ByQuery),
	); err != nil {
		s.Release()
		return nil, fmt.Errorf("diploma: mounting document: %w", err)
	}

	if err := b.settle(runCtx, len(doc.Images)); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

// settle waits for images and fonts, bounded by the settle timeout, then
// for two animation frames so layout is committed.
func (b *Browser) settle(ctx context.Context, images int) error {
	var ready bool
	err := chromedp.Run(ctx, chromedp.Poll(
		fmt.Sprintf(settleScript, images), &ready,
		chromedp.WithPollingInterval(25*time.Millisecond),
		chromedp.WithPollingTimeout(b.cfg.settleTimeout),
	))
	switch {
	case errors.Is(err, chromedp.ErrPollingTimeout):
		b.cfg.logger.Warn("document did not settle, capturing anyway",
			zap.Duration("timeout", b.cfg.settleTimeout),
			zap.Int("images", images))
	case err != nil:
		return fmt.Errorf("diploma: waiting for document: %w", err)
	}

	var ok bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(frameScript, &ok,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		},
	)); err != nil {
		return fmt.Errorf("diploma: waiting for layout: %w", err)
	}
	return nil
}

func (b *Browser) checkClosed() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

// chromeSurface is one tab holding a mounted document.
type chromeSurface struct {
	ctx    context.Context
	cancel context.CancelFunc
	stop   func() bool
	path   string

	width, height int

	mu       sync.Mutex
	released bool
}

// The root element's transform is cleared for the capture and put back
// afterwards.
const (
	neutralizeScript = `(() => {
	const el = document.getElementById('diploma');
	el.dataset.savedTransform = el.style.transform;
	el.style.transform = 'none';
	return true;
})()`
	restoreScript = `(() => {
	const el = document.getElementById('diploma');
	el.style.transform = el.dataset.savedTransform || '';
	delete el.dataset.savedTransform;
	return true;
})()`
)

func (s *chromeSurface) Size() (int, int) { return s.width, s.height }

func (s *chromeSurface) Capture(ctx context.Context, opts CaptureOptions) ([]byte, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, ErrReleased
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ok bool
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(neutralizeScript, &ok)); err != nil {
		return nil, fmt.Errorf("diploma: clearing transform: %w", err)
	}
	defer chromedp.Run(s.ctx, chromedp.Evaluate(restoreScript, &ok))

	var buf []byte
	if err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatJpeg).
			WithQuality(int64(opts.JPEGQuality())).
			WithClip(&page.Viewport{
				X:      0,
				Y:      0,
				Width:  float64(s.width),
				Height: float64(s.height),
				Scale:  opts.Scale,
			}).
			WithCaptureBeyondViewport(true).
			Do(ctx)
		return err
	})); err != nil {
		return nil, fmt.Errorf("diploma: capture failed: %w", err)
	}
	return buf, nil
}

func (s *chromeSurface) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	s.stop()
	s.cancel()
	os.Remove(s.path)
}

// resolveBrowser downloads a compatible Chromium binary if one is not
// already cached and returns the path to the executable. The binary is
// stored in ~/.cache/rod/browser (Unix) or %APPDATA%\rod\browser (Windows).
func resolveBrowser() (string, error) {
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("diploma: downloading browser: %w", err)
	}
	return path, nil
}
