package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

// OpenAIModel uses the Responses API with input_image parts.
type OpenAIModel struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewOpenAIModel(model, baseURL string, httpClient *http.Client) *OpenAIModel {
	return &OpenAIModel{model: model, baseURL: baseURL, httpClient: httpClient}
}

func (o *OpenAIModel) Name() string { return o.model }

func (o *OpenAIModel) Generate(ctx context.Context, apiKey, prompt string, images []Image) (string, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(o.httpClient),
		option.WithMaxRetries(0),
	}
	if o.baseURL != "" {
		opts = append(opts, option.WithBaseURL(o.baseURL))
	}
	client := openai.NewClient(opts...)

	content := make(responses.ResponseInputMessageContentListParam, 0, len(images)+1)
	for _, img := range images {
		content = append(content, responses.ResponseInputContentUnionParam{
			OfInputImage: &responses.ResponseInputImageParam{
				ImageURL: openai.String(img.DataURL()),
				Detail:   responses.ResponseInputImageDetailHigh,
			},
		})
	}
	content = append(content, responses.ResponseInputContentParamOfInputText(prompt))

	response, err := client.Responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ResponsesModel(o.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(content, "user"),
			},
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{StatusCode: apiErr.StatusCode, Body: apiErr.Error()}
		}
		return "", fmt.Errorf("openai api: %w", err)
	}

	out := response.OutputText()
	if out == "" {
		return "", &ResponseFormatError{Raw: response.RawJSON(), Err: errors.New("empty response from openai")}
	}
	return out, nil
}

// Close releases idle connections.
func (o *OpenAIModel) Close() {
	o.httpClient.CloseIdleConnections()
}
