// Package mcpserver exposes form extraction as an MCP tool.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/formlens/internal/form"
	"github.com/dgallion1/formlens/internal/geometry"
	"github.com/dgallion1/formlens/internal/session"
)

// Analyzer turns PDF bytes into a positioned field list.
type Analyzer interface {
	Analyze(ctx context.Context, pdf []byte) (*session.Document, error)
}

type FormExtractQuery struct {
	URL     string `json:"url,omitempty"`
	RawData []byte `json:"raw_data,omitempty"`
}

type FieldResult struct {
	Name       string             `json:"name"`
	Value      string             `json:"value"`
	Type       form.FieldType     `json:"type"`
	Label      string             `json:"label,omitempty"`
	PageNumber int                `json:"pageNumber"`
	Confidence *float64           `json:"confidence,omitempty"`
	Position   *geometry.Position `json:"position,omitempty"`
}

type FormExtractResponse struct {
	FormTitle   string              `json:"formTitle,omitempty"`
	Description string              `json:"description,omitempty"`
	Cached      bool                `json:"cached"`
	Pages       []geometry.PageDims `json:"pages"`
	Fields      []FieldResult       `json:"fields"`
}

func FormExtractTool() *mcp.Tool {
	inputschema, err := jsonschema.For[FormExtractQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "form-extract",
		Description: "Detect the fillable fields of a PDF form and report each field's value, type and bounding box in rendered page pixels",
		InputSchema: inputschema,
	}
}

// Fetcher downloads a document.
type Fetcher func(ctx context.Context, url string) ([]byte, error)

// FormExtractToolHandler runs the analysis on raw bytes or on a URL.
func FormExtractToolHandler(ctx context.Context, req *mcp.CallToolRequest, query FormExtractQuery, analyzer Analyzer, fetch Fetcher, log *slog.Logger) (*mcp.CallToolResult, *FormExtractResponse, error) {
	var data []byte
	var err error

	if query.RawData != nil {
		data = query.RawData
	} else if query.URL != "" {
		data, err = fetch(ctx, query.URL)
		if err != nil {
			return nil, nil, err
		}
	} else {
		return nil, nil, errors.New("no data provided")
	}

	doc, err := analyzer.Analyze(ctx, data)
	if err != nil {
		log.Warn("form-extract failed", "error", err)
		return nil, nil, err
	}

	resp := &FormExtractResponse{
		FormTitle:   doc.FormTitle,
		Description: doc.Description,
		Cached:      doc.Cached,
		Pages:       make([]geometry.PageDims, len(doc.Pages)),
		Fields:      make([]FieldResult, 0, len(doc.Fields)),
	}
	for i, p := range doc.Pages {
		resp.Pages[i] = p.Dims
	}
	for _, f := range doc.Fields {
		fr := FieldResult{
			Name:       f.Name,
			Value:      f.Value,
			Type:       f.Type,
			Label:      f.Label,
			PageNumber: f.PageNumber,
			Confidence: f.Confidence,
		}
		if pos, ok := doc.Layout.Lookup(f.Name); ok {
			fr.Position = &pos
		}
		resp.Fields = append(resp.Fields, fr)
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Extracted %d fields (%d positioned) from %d pages.",
					len(doc.Fields), doc.Layout.Len(), len(doc.Pages)),
			},
		},
	}
	return result, resp, nil
}

// GetFromURL downloads a document, failing on non-2xx responses or when
// the body exceeds limit bytes.
func GetFromURL(client *http.Client, limit int64) Fetcher {
	return func(ctx context.Context, url string) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > limit {
			return nil, fmt.Errorf("fetch %s: document exceeds %d bytes", url, limit)
		}
		return data, nil
	}
}

func CreateServer(analyzer Analyzer, fetch Fetcher, log *slog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "formlens", Version: "v0.1.0"}, nil)

	mcp.AddTool(server, FormExtractTool(), func(ctx context.Context, req *mcp.CallToolRequest, query FormExtractQuery) (*mcp.CallToolResult, *FormExtractResponse, error) {
		return FormExtractToolHandler(ctx, req, query, analyzer, fetch, log)
	})
	return server
}
