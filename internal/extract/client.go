package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// PageSize is the pixel size of a rendered page image.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Request carries the rendered pages of one document.
type Request struct {
	Images     []string   `json:"pdfImages"`
	Dimensions []PageSize `json:"dimensions"`
	Scale      float64    `json:"scale"`
}

// Credential names a secret and reads it. Get is called on every request.
type Credential struct {
	Key string
	Get func() string
}

// Options tunes a Client.
type Options struct {
	MaxImages         int
	RequestsPerSecond float64
	Burst             int
}

// Client runs extractions against one Model, with a shared response cache
// and rate limiter. Failures are never retried.
type Client struct {
	model      Model
	credential Credential
	cache      *Cache
	limiter    *rate.Limiter
	maxImages  int
	log        *slog.Logger

	Stats *LLMStats
}

func NewClient(model Model, credential Credential, cache *Cache, opts Options, log *slog.Logger) *Client {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		model:      model,
		credential: credential,
		cache:      cache,
		limiter:    rate.NewLimiter(limit, burst),
		maxImages:  opts.MaxImages,
		log:        log,
		Stats:      NewLLMStats(time.Hour),
	}
}

// Model returns the model id in use.
func (c *Client) Model() string {
	return c.model.Name()
}

// Extract returns the form fields found in req's page images.
func (c *Client) Extract(ctx context.Context, req Request) (*Result, error) {
	if len(req.Images) == 0 {
		return nil, errors.New("no page images")
	}

	key := CacheKey(req)
	if res, ok := c.cache.Get(key); ok {
		res.Cached = true
		c.Stats.Record(OutcomeCached, 0)
		c.log.Info("extraction", "model", c.model.Name(), "cached", true, "fields", len(res.Fields))
		return res, nil
	}

	apiKey := ""
	if c.credential.Get != nil {
		apiKey = c.credential.Get()
	}
	if apiKey == "" {
		return nil, &ConfigError{Key: c.credential.Key}
	}

	images := make([]Image, 0, len(req.Images))
	for _, s := range req.Images {
		if c.maxImages > 0 && len(images) == c.maxImages {
			break
		}
		images = append(images, ParseImage(s))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	start := time.Now()
	res, err := c.generate(ctx, apiKey, req, images)
	elapsed := time.Since(start)
	if err != nil {
		c.Stats.Record(OutcomeFailed, elapsed)
		c.log.Warn("extraction failed",
			"model", c.model.Name(),
			"images", len(images),
			"elapsed_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return nil, err
	}
	c.Stats.Record(OutcomeOK, elapsed)

	c.cache.Put(key, res)
	c.log.Info("extraction",
		"model", c.model.Name(),
		"images", len(images),
		"fields", len(res.Fields),
		"elapsed_ms", elapsed.Milliseconds(),
		"cached", false,
	)
	return res, nil
}

func (c *Client) generate(ctx context.Context, apiKey string, req Request, images []Image) (*Result, error) {
	prompt := BuildPrompt(req.Dimensions, req.Scale)
	raw, err := c.model.Generate(ctx, apiKey, prompt, images)
	if err != nil {
		return nil, err
	}
	data, err := ScrapeJSON(raw)
	if err != nil {
		return nil, err
	}
	return DecodeResult(data, raw)
}

// Close releases idle upstream connections.
func (c *Client) Close() {
	if closer, ok := c.model.(interface{ Close() }); ok {
		closer.Close()
	}
}
