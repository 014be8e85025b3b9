package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Image is one page image ready for upload: base64 data without a
// data-URL prefix.
type Image struct {
	MIMEType string
	Data     string
}

// DataURL returns the image as a data URL.
func (img Image) DataURL() string {
	return "data:" + img.MIMEType + ";base64," + img.Data
}

// ParseImage accepts a data URL or bare base64. Anything without a
// data-URL prefix is assumed to be PNG.
func ParseImage(s string) Image {
	if strings.HasPrefix(s, "data:") {
		if comma := strings.Index(s, ","); comma >= 0 {
			mime := strings.TrimPrefix(s[:comma], "data:")
			mime = strings.TrimSuffix(mime, ";base64")
			if mime == "" {
				mime = "image/png"
			}
			return Image{MIMEType: mime, Data: s[comma+1:]}
		}
	}
	return Image{MIMEType: "image/png", Data: s}
}

// Model sends one prompt plus page images to a vision model and returns
// its text answer. Non-success responses are reported as *UpstreamError.
type Model interface {
	Name() string
	Generate(ctx context.Context, apiKey, prompt string, images []Image) (string, error)
}

// Provider names.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// ProviderSpec selects and configures a Model.
type ProviderSpec struct {
	Provider string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// NewModel builds the model for spec and names the credential it needs.
func NewModel(spec ProviderSpec) (Model, string, error) {
	httpClient := &http.Client{Timeout: spec.Timeout}
	switch spec.Provider {
	case ProviderGemini, "":
		return NewGeminiModel(spec.Model, spec.BaseURL, httpClient), "GEMINI_API_KEY", nil
	case ProviderAnthropic:
		return NewClaudeModel(spec.Model, spec.BaseURL, httpClient), "ANTHROPIC_API_KEY", nil
	case ProviderOpenAI:
		return NewOpenAIModel(spec.Model, spec.BaseURL, httpClient), "OPENAI_API_KEY", nil
	default:
		return nil, "", fmt.Errorf("unknown provider %q", spec.Provider)
	}
}

// DefaultModel returns the default model id for a provider.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-sonnet-4-5-20250929"
	case ProviderOpenAI:
		return "gpt-5-mini"
	default:
		return "gemini-2.0-flash"
	}
}
