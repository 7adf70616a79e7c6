// diplomagen renders diplomas from a roster spreadsheet and serves the
// diploma HTTP API.
//
// Usage:
//
//	diplomagen export [options] -roster students.xlsx
//	diplomagen template [-o file.xlsx]
//	diplomagen info <file.pdf|file.zip>
//	diplomagen serve [-settings file] [-env-dir dir]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	diploma "github.com/porticus-lab/go-diploma"
	"github.com/porticus-lab/go-diploma/config"
	"github.com/porticus-lab/go-diploma/draft"
	"github.com/porticus-lab/go-diploma/internal/logging"
	"github.com/porticus-lab/go-diploma/pdfinfo"
	"github.com/porticus-lab/go-diploma/roster"
	"github.com/porticus-lab/go-diploma/server"
	"github.com/porticus-lab/go-diploma/templates"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "export":
		err = runExport(os.Args[2:])
	case "template":
		err = runTemplate(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`diplomagen - diploma generator

Usage:
  diplomagen export [options] -roster students.xlsx
  diplomagen template [-o file.xlsx]
  diplomagen info <file.pdf|file.zip>
  diplomagen serve [-settings file] [-env-dir dir]

Commands:
  export    Render diplomas to a PDF or a ZIP of PDFs
  template  Write an empty roster spreadsheet
  info      Show page count and page sizes of generated files
  serve     Run the HTTP API

Run "diplomagen <command> -h" for the options of a command.
`)
}

// backendFlags are the rendering options shared by export and serve.
type backendFlags struct {
	backend      string
	chromePath   string
	noSandbox    bool
	autoDownload bool
	scale        float64
	quality      float64
	concurrency  int
}

func (b *backendFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&b.backend, "backend", "chrome", `rendering backend: "chrome" or "draft"`)
	fs.StringVar(&b.chromePath, "chrome", "", "path to the Chrome executable")
	fs.BoolVar(&b.noSandbox, "no-sandbox", false, "run Chrome without its sandbox")
	fs.BoolVar(&b.autoDownload, "auto-download", false, "download Chromium when none is installed")
	fs.Float64Var(&b.scale, "scale", 2, "capture scale factor")
	fs.Float64Var(&b.quality, "quality", 0.9, "JPEG quality in (0, 1]")
	fs.IntVar(&b.concurrency, "concurrency", 1, "students rendered at once in archive mode")
}

func (b *backendFlags) fromSettings(s config.Settings) {
	*b = backendFlags{
		backend:      s.Backend,
		chromePath:   s.ChromePath,
		noSandbox:    s.NoSandbox,
		autoDownload: s.AutoDownload,
		scale:        s.Scale,
		quality:      s.Quality,
		concurrency:  s.Concurrency,
	}
}

// mounter returns the mounter selected by b and a function releasing it.
func (b *backendFlags) mounter(logger *zap.Logger, opts ...diploma.Option) (diploma.Mounter, func(), error) {
	switch b.backend {
	case "draft":
		return draft.New(), func() {}, nil
	case "chrome", "":
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", b.backend)
	}

	opts = append(opts, diploma.WithLogger(logger))
	if b.chromePath != "" {
		opts = append(opts, diploma.WithChromePath(b.chromePath))
	}
	if b.noSandbox {
		opts = append(opts, diploma.WithNoSandbox())
	}
	if b.autoDownload {
		opts = append(opts, diploma.WithAutoDownload())
	}
	br, err := diploma.NewBrowser(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("starting browser: %w", err)
	}
	return br, func() {
		if err := br.Close(); err != nil {
			logger.Warn("closing browser", zap.Error(err))
		}
	}, nil
}

func (b *backendFlags) exportOptions(logger *zap.Logger) []diploma.ExportOption {
	return []diploma.ExportOption{
		diploma.WithRasterizer(diploma.Rasterizer{Scale: b.scale, Quality: b.quality}),
		diploma.WithConcurrency(b.concurrency),
		diploma.WithExportLogger(logger),
	}
}

// runExport implements the "export" command.
func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	var (
		b          backendFlags
		rosterFile = fs.String("roster", "", "roster spreadsheet (.xlsx)")
		configFile = fs.String("config", "", "diploma configuration (.json); defaults when empty")
		modeName   = fs.String("mode", string(diploma.ModeMultipage), "single, multipage or archive")
		index      = fs.Int("index", 0, "student index for single mode")
		outDir     = fs.String("o", ".", "output directory")
		debug      = fs.Bool("debug", false, "verbose logging")
	)
	b.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	mode, err := diploma.ParseMode(*modeName)
	if err != nil {
		return err
	}
	cfg, err := readConfig(*configFile)
	if err != nil {
		return err
	}
	var students roster.Roster
	if *rosterFile != "" {
		if students, err = readRoster(*rosterFile); err != nil {
			return err
		}
	}

	logger, err := logging.New(*debug)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	m, release, err := b.mounter(logger)
	if err != nil {
		return err
	}
	defer release()

	opts := append(b.exportOptions(logger), diploma.WithProgress(func(cur, total int) {
		fmt.Fprintf(os.Stderr, "\r%d/%d", cur, total)
		if cur == total {
			fmt.Fprintln(os.Stderr)
		}
	}))
	exp := diploma.NewExporter(templates.MustNewRenderer(), m, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := exp.Export(ctx, diploma.Request{Mode: mode, Config: cfg, Students: students, Index: *index})
	if err != nil {
		return err
	}
	path := filepath.Join(*outDir, res.Filename)
	if err := res.WriteToFile(path, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("%s (%d pages, %d bytes)\n", path, res.Pages, res.Len())
	return nil
}

func readConfig(path string) (config.Configuration, error) {
	cfg := config.Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding %s: %w", path, err)
	}
	if err := config.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func readRoster(path string) (roster.Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening roster: %w", err)
	}
	defer f.Close()

	students, err := roster.Import(f)
	if err != nil {
		return nil, err
	}
	if skipped := len(students) - len(students.Valid()); skipped > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d rows without a name are skipped\n", skipped)
	}
	return students, nil
}

// runTemplate implements the "template" command.
func runTemplate(args []string) error {
	fs := flag.NewFlagSet("template", flag.ContinueOnError)
	out := fs.String("o", "plantilla_estudiantes.xlsx", "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := roster.WriteTemplate(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// runInfo implements the "info" command.
func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no input file specified")
	}
	inputFile := fs.Arg(0)

	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputFile, err)
	}

	var entries []pdfinfo.Entry
	if pdfinfo.IsArchive(data) {
		if entries, err = pdfinfo.InspectArchive(data); err != nil {
			return err
		}
	} else {
		info, err := pdfinfo.InspectBytes(data)
		if err != nil {
			return err
		}
		entries = []pdfinfo.Entry{{Name: filepath.Base(inputFile), Info: info}}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	fmt.Printf("File:    %s\n", inputFile)
	for _, e := range entries {
		fmt.Printf("\n%s\n", e.Name)
		fmt.Printf("  Pages: %d\n", e.Info.Pages)
		for i, sz := range e.Info.Sizes {
			w, h := sz.Millimeters()
			orient := "portrait"
			if sz.Landscape() {
				orient = "landscape"
			}
			fmt.Printf("  Page %d: %.0f x %.0f mm (%s)\n", i+1, w, h, orient)
		}
	}
	return nil
}

// runServe implements the "serve" command.
func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	settingsFile := fs.String("settings", "", "settings file (yaml, json or toml)")
	envDir := fs.String("env-dir", ".", "directory holding .env.{env} files")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := config.LoadSettings(*settingsFile, *envDir)
	if err != nil {
		return err
	}
	logger, err := logging.New(st.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	logger = logger.With(zap.String("env", st.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, st)
	if err != nil {
		return err
	}
	defer closeStore()

	var b backendFlags
	b.fromSettings(st)
	var browserOpts []diploma.Option
	if st.Timeout > 0 {
		browserOpts = append(browserOpts, diploma.WithTimeout(st.Timeout))
	}
	if st.SettleTimeout > 0 {
		browserOpts = append(browserOpts, diploma.WithSettleTimeout(st.SettleTimeout))
	}
	m, release, err := b.mounter(logger, browserOpts...)
	if err != nil {
		return err
	}
	defer release()

	renderer := templates.MustNewRenderer()
	srv := server.New(server.Options{
		Store:    store,
		Renderer: renderer,
		Exporter: diploma.NewExporter(renderer, m, b.exportOptions(logger)...),
		JobTTL:   st.JobTTL,
		Logger:   logger,
		Debug:    st.Debug,
	})
	logger.Info("starting", zap.String("backend", st.Backend), zap.String("store", st.Store))
	return srv.Run(ctx, st.Listen)
}

func openStore(ctx context.Context, st config.Settings) (config.Store, func(), error) {
	switch st.Store {
	case "memory":
		return config.NewMemoryStore(), func() {}, nil
	case "file", "":
		return config.NewFileStore(st.StorePath), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     st.RedisAddr,
			Password: st.RedisPassword,
			DB:       st.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", st.RedisAddr, err)
		}
		return config.NewRedisStore(client, st.StorageKey), func() { client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", st.Store)
}
