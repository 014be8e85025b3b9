package raster

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/formlens/internal/geometry"
)

// RenderError means the document could not be rasterized. Page is the
// 0-based page that failed, or -1 when the document as a whole is bad.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	if e.Page < 0 {
		return fmt.Sprintf("render document: %v", e.Err)
	}
	return fmt.Sprintf("render page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Page is one rendered page.
type Page struct {
	Index int
	PNG   []byte
	Dims  geometry.PageDims
}

// DataURL returns the page image as a PNG data URL.
func (p Page) DataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(p.PNG)
}

// Runner executes an external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Rasterizer renders PDF pages to PNG with pdftoppm.
type Rasterizer struct {
	pdftoppm string
	runner   Runner
	sizes    func([]byte) ([]Size, error)
	log      *slog.Logger
}

func New(pdftoppm string, log *slog.Logger) *Rasterizer {
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Rasterizer{pdftoppm: pdftoppm, runner: execRunner{}, sizes: PageSizes, log: log}
}

// WithRunner swaps the command runner.
func (r *Rasterizer) WithRunner(runner Runner) *Rasterizer {
	r.runner = runner
	return r
}

// Render rasterizes every page of data at scale times its natural
// 72 dpi size. Either all pages come back in document order or the call
// fails with a *RenderError.
func (r *Rasterizer) Render(ctx context.Context, data []byte, scale float64) ([]Page, error) {
	if !IsPDF(data) {
		return nil, &RenderError{Page: -1, Err: ErrNotPDF}
	}
	if scale <= 0 {
		return nil, &RenderError{Page: -1, Err: fmt.Errorf("invalid render scale %g", scale)}
	}
	start := time.Now()

	sizes, err := r.sizes(data)
	if err != nil {
		return nil, &RenderError{Page: -1, Err: err}
	}
	if len(sizes) == 0 {
		return nil, &RenderError{Page: -1, Err: errors.New("document has no pages")}
	}

	tmpDir, err := os.MkdirTemp("", "formlens-raster-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.log.Warn("remove temp dir", "path", tmpDir, "error", err)
		}
	}()

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	dpi := strconv.FormatFloat(72*scale, 'f', -1, 64)
	if _, stderr, err := r.runner.Run(ctx, r.pdftoppm, "-r", dpi, "-png", in, prefix); err != nil {
		return nil, &RenderError{Page: -1, Err: fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(stderr)))}
	}

	files, err := renderedFiles(prefix)
	if err != nil {
		return nil, &RenderError{Page: -1, Err: err}
	}
	if len(files) != len(sizes) {
		return nil, &RenderError{Page: len(files), Err: fmt.Errorf("rendered %d of %d pages", len(files), len(sizes))}
	}

	pages := make([]Page, 0, len(files))
	for i, path := range files {
		page, err := loadPage(i, path, sizes[i])
		if err != nil {
			return nil, &RenderError{Page: i, Err: err}
		}
		pages = append(pages, page)
	}

	r.log.Debug("rasterized document",
		"pages", len(pages),
		"scale", scale,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, nil
}

func loadPage(index int, path string, size Size) (Page, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Page{}, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return Page{}, fmt.Errorf("decode image: %w", err)
	}
	if format != "png" {
		return Page{}, fmt.Errorf("unexpected image format %q", format)
	}
	if size.Width <= 0 || size.Height <= 0 {
		return Page{}, fmt.Errorf("page has zero size")
	}
	return Page{
		Index: index,
		PNG:   b,
		Dims: geometry.PageDims{
			OriginalWidth:  size.Width,
			OriginalHeight: size.Height,
			RenderWidth:    cfg.Width,
			RenderHeight:   cfg.Height,
			ScaleX:         float64(cfg.Width) / size.Width,
			ScaleY:         float64(cfg.Height) / size.Height,
		},
	}, nil
}

// renderedFiles lists prefix-N.png in page order. pdftoppm zero-pads N
// to the width of the page count, so order by the parsed number.
func renderedFiles(prefix string) ([]string, error) {
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	type numbered struct {
		n    int
		path string
	}
	var files []numbered
	for _, m := range matches {
		num := strings.TrimSuffix(strings.TrimPrefix(m, prefix+"-"), ".png")
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		files = append(files, numbered{n: n, path: m})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].n < files[j].n })

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}
