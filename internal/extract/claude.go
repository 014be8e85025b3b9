package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultAnthropicURL = "https://api.anthropic.com"

// ClaudeModel calls the Anthropic Messages API with image content blocks.
type ClaudeModel struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewClaudeModel(model, baseURL string, httpClient *http.Client) *ClaudeModel {
	if baseURL == "" {
		baseURL = defaultAnthropicURL
	}
	return &ClaudeModel{
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicBlock struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ClaudeModel) Name() string { return c.model }

// Generate sends the images followed by the prompt in one user message.
func (c *ClaudeModel) Generate(ctx context.Context, apiKey, prompt string, images []Image) (string, error) {
	blocks := make([]anthropicBlock, 0, len(images)+1)
	for _, img := range images {
		blocks = append(blocks, anthropicBlock{
			Type:   "image",
			Source: &anthropicSource{Type: "base64", MediaType: img.MIMEType, Data: img.Data},
		})
	}
	blocks = append(blocks, anthropicBlock{Type: "text", Text: prompt})

	body, err := json.Marshal(anthropicRequest{
		Model:     c.model,
		MaxTokens: 8192,
		Messages:  []anthropicMessage{{Role: "user", Content: blocks}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("claude api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &ResponseFormatError{Raw: string(respBody), Err: fmt.Errorf("decode response: %w", err)}
	}
	if apiResp.Error != nil {
		return "", &UpstreamError{StatusCode: http.StatusBadGateway, Body: apiResp.Error.Type + ": " + apiResp.Error.Message}
	}

	var sb strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &ResponseFormatError{Raw: string(respBody), Err: fmt.Errorf("empty response from claude")}
	}
	return sb.String(), nil
}

// Close releases idle connections.
func (c *ClaudeModel) Close() {
	c.httpClient.CloseIdleConnections()
}
