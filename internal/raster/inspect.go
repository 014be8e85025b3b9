package raster

import (
	"bytes"
	"errors"
	"fmt"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Size is a page size in PDF user space units (points).
type Size struct {
	Width  float64
	Height float64
}

var ErrNotPDF = errors.New("not a pdf document")

// IsPDF reports whether data starts like a PDF file. The header may be
// preceded by up to 1KB of junk.
func IsPDF(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, []byte("%PDF-"))
}

// PageSizes returns the original size of every page. pdfcpu is tried
// first; documents it rejects get a second chance with ledongthuc/pdf.
func PageSizes(data []byte) ([]Size, error) {
	sizes, err := pdfcpuSizes(data)
	if err == nil && len(sizes) > 0 {
		return sizes, nil
	}
	fallback, ferr := mediaBoxSizes(data)
	if ferr != nil {
		if err == nil {
			err = errors.New("no pages")
		}
		return nil, fmt.Errorf("read page sizes: %w (fallback: %v)", err, ferr)
	}
	return fallback, nil
}

func pdfcpuSizes(data []byte) ([]Size, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	dims, err := api.PageDims(bytes.NewReader(data), conf)
	if err != nil {
		return nil, err
	}
	sizes := make([]Size, 0, len(dims))
	for _, d := range dims {
		sizes = append(sizes, Size{Width: d.Width, Height: d.Height})
	}
	return sizes, nil
}

func mediaBoxSizes(data []byte) (sizes []Size, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	n := reader.NumPage()
	if n == 0 {
		return nil, errors.New("no pages")
	}
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			return nil, fmt.Errorf("page %d missing", i)
		}
		size, ok := mediaBox(page.V)
		if !ok {
			return nil, fmt.Errorf("page %d has no media box", i)
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}

// mediaBox reads /MediaBox from a page, following /Parent for the
// inherited value.
func mediaBox(v pdflib.Value) (Size, bool) {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdflib.Array && box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w < 0 {
				w = -w
			}
			if h < 0 {
				h = -h
			}
			if w > 0 && h > 0 {
				return Size{Width: w, Height: h}, true
			}
		}
		v = v.Key("Parent")
	}
	return Size{}, false
}
