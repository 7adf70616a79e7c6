package diploma

import (
	"time"

	"go.uber.org/zap"
)

// browserConfig holds internal configuration for a Browser.
type browserConfig struct {
	chromePath    string
	timeout       time.Duration
	settleTimeout time.Duration
	noSandbox     bool
	autoDownload  bool
	headless      string
	logger        *zap.Logger
}

func defaultConfig() browserConfig {
	return browserConfig{
		timeout:       30 * time.Second,
		settleTimeout: 2 * time.Second,
		headless:      "new",
		logger:        zap.NewNop(),
	}
}

// Option configures a [Browser].
type Option func(*browserConfig)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the library searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *browserConfig) {
		c.chromePath = path
	}
}

// WithTimeout sets the maximum lifetime of a single mounted surface,
// from navigation to the end of capture. Defaults to 30 seconds. A zero or
// negative value disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *browserConfig) {
		c.timeout = d
	}
}

// WithSettleTimeout bounds the wait for images and fonts after a document
// is mounted. When it expires the capture proceeds anyway.
// Defaults to 2 seconds.
func WithSettleTimeout(d time.Duration) Option {
	return func(c *browserConfig) {
		c.settleTimeout = d
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *browserConfig) {
		c.noSandbox = true
	}
}

// WithAutoDownload fetches a compatible Chromium build when no explicit
// path is given. The download is cached between runs.
func WithAutoDownload() Option {
	return func(c *browserConfig) {
		c.autoDownload = true
	}
}

// WithLogger sets the logger used for browser lifecycle and settle
// warnings. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *browserConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// exportConfig holds internal configuration for an Exporter.
type exportConfig struct {
	raster      Rasterizer
	page        PageConfig
	progress    ProgressFunc
	concurrency int
	logger      *zap.Logger
}

func defaultExportConfig() exportConfig {
	return exportConfig{
		raster:      DefaultRasterizer(),
		page:        DefaultPageConfig(),
		concurrency: 1,
		logger:      zap.NewNop(),
	}
}

// ExportOption configures an [Exporter].
type ExportOption func(*exportConfig)

// WithRasterizer sets the capture scale and quality.
func WithRasterizer(r Rasterizer) ExportOption {
	return func(c *exportConfig) {
		c.raster = r
	}
}

// WithPageConfig sets the physical page of generated PDFs.
func WithPageConfig(p PageConfig) ExportOption {
	return func(c *exportConfig) {
		c.page = p.resolved()
	}
}

// WithProgress registers a callback invoked after each student with the
// number processed so far and the total. It is also called once with
// current 0 when the export starts.
func WithProgress(fn ProgressFunc) ExportOption {
	return func(c *exportConfig) {
		c.progress = fn
	}
}

// WithConcurrency lets archive exports render up to n students at once.
// Entries are still written in roster order. Single and multipage exports
// are always serial. Values below 1 mean 1.
func WithConcurrency(n int) ExportOption {
	return func(c *exportConfig) {
		if n < 1 {
			n = 1
		}
		c.concurrency = n
	}
}

// WithExportLogger sets the logger for export outcomes.
func WithExportLogger(l *zap.Logger) ExportOption {
	return func(c *exportConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
