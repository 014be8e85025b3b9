package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/formlens/internal/extract"
	"github.com/dgallion1/formlens/internal/form"
	"github.com/dgallion1/formlens/internal/geometry"
	"github.com/dgallion1/formlens/internal/raster"
	"github.com/dgallion1/formlens/internal/session"
)

// Renderer turns a PDF into page images.
type Renderer interface {
	Render(ctx context.Context, data []byte, scale float64) ([]raster.Page, error)
}

// Extractor finds form fields in page images.
type Extractor interface {
	Extract(ctx context.Context, req extract.Request) (*extract.Result, error)
}

// Processor runs the full analysis of one document.
type Processor struct {
	renderer  Renderer
	extractor Extractor
	scale     float64
	log       *slog.Logger
}

func NewProcessor(renderer Renderer, extractor Extractor, scale float64, log *slog.Logger) *Processor {
	if scale <= 0 {
		scale = 2
	}
	if log == nil {
		log = slog.Default()
	}
	return &Processor{renderer: renderer, extractor: extractor, scale: scale, log: log}
}

// Scale returns the render scale applied to every page.
func (p *Processor) Scale() float64 {
	return p.scale
}

// Analyze rasterizes pdf, extracts its fields and maps them onto the
// rendered pages. Fields and layout come from the same extraction.
func (p *Processor) Analyze(ctx context.Context, pdf []byte) (*session.Document, error) {
	start := time.Now()
	log := p.log.With("content_hash", ContentHashHex(pdf)[:12])

	pages, err := p.renderer.Render(ctx, pdf, p.scale)
	if err != nil {
		log.Warn("render failed", "error", err)
		return nil, err
	}

	res, err := p.extractor.Extract(ctx, BuildRequest(pages, p.scale))
	if err != nil {
		return nil, fmt.Errorf("extract fields: %w", err)
	}

	doc := Assemble(pages, res)
	log.Info("document analyzed",
		"pages", len(pages),
		"fields", len(doc.Fields),
		"positioned", doc.Layout.Len(),
		"cached", res.Cached,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// BuildRequest packages rendered pages for the extraction endpoint. The
// dimensions handed over are the render sizes, the coordinate space of
// the images themselves.
func BuildRequest(pages []raster.Page, scale float64) extract.Request {
	req := extract.Request{
		Images:     make([]string, len(pages)),
		Dimensions: make([]extract.PageSize, len(pages)),
		Scale:      scale,
	}
	for i, pg := range pages {
		req.Images[i] = pg.DataURL()
		req.Dimensions[i] = extract.PageSize{
			Width:  float64(pg.Dims.RenderWidth),
			Height: float64(pg.Dims.RenderHeight),
		}
	}
	return req
}

// Assemble combines rendered pages and an extraction result into a
// document. Date values are brought into display form.
func Assemble(pages []raster.Page, res *extract.Result) *session.Document {
	dims := make([]geometry.PageDims, len(pages))
	for i, pg := range pages {
		dims[i] = pg.Dims
	}

	fields := make([]form.Field, 0, len(res.Fields))
	placements := make([]geometry.Placement, 0, len(res.Fields))
	for _, f := range res.Fields {
		value := f.Value
		if f.Type == form.TypeDate {
			value = form.ToDisplayDate(value)
		}
		fields = append(fields, form.Field{
			Name:       f.Name,
			Value:      value,
			Type:       f.Type,
			Label:      f.Label,
			PageNumber: f.PageNumber,
			Confidence: f.Confidence,
		})
		placements = append(placements, f.Placement())
	}

	return &session.Document{
		Pages:       pages,
		Fields:      fields,
		Layout:      geometry.BuildLayout(placements, dims),
		FormTitle:   res.FormTitle,
		Description: res.Description,
		Cached:      res.Cached,
	}
}
