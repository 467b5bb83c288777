package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/receipt-ledger/internal"
	"github.com/frahmantamala/receipt-ledger/internal/receipt"
	glang "google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"
)

var ErrMissingAPIKey = errors.New("gemini api key is not set")

// Client implements receipt.Generator on the Generative Language API.
type Client struct {
	svc     *glang.Service
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

var _ receipt.Generator = (*Client)(nil)

// New builds a client from config. Extra options are appended after the API
// key, which lets callers point the client at another endpoint.
func New(ctx context.Context, cfg internal.ReceiptConfig, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	key := strings.TrimSpace(cfg.GeminiAPIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}

	svc, err := glang.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(key)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create generative language service: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	logger.InfoContext(ctx, "gemini client created", "model", model)

	return &Client{
		svc:     svc,
		model:   model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string, image receipt.Image) (string, error) {
	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &glang.GenerateContentRequest{
		Contents: []*glang.Content{{
			Role: "user",
			Parts: []*glang.Part{
				{Text: prompt},
				{InlineData: &glang.Blob{
					MimeType: image.MimeType,
					Data:     base64.StdEncoding.EncodeToString(image.Data),
				}},
			},
		}},
	}

	start := time.Now()
	resp, err := c.svc.Models.GenerateContent(c.model, req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	c.logger.DebugContext(ctx, "gemini reply received", "model", c.model, "duration_ms", time.Since(start).Milliseconds())

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("generate content: no candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("generate content: empty reply (finish reason %q)", resp.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}
