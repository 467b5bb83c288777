package receipt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const StructuredPrompt = `Analyze this receipt image and extract the following information in JSON format:

{
    "merchant_name": "Name of the store/merchant",
    "amount": "Total amount as a number (e.g., 45.99)",
    "currency": "Currency code (e.g., USD, EUR)",
    "date": "Date in YYYY-MM-DD format",
    "time": "Time in HH:MM format if available",
    "category": "Best matching category from: food, transport, shopping, entertainment, utilities, healthcare, education, other",
    "payment_method": "Payment method if visible: cash, credit_card, debit_card, upi, other",
    "tax": "Tax amount as a number",
    "tip": "Tip amount as a number if applicable",
    "items": [
        {
            "name": "Item name",
            "quantity": "Quantity",
            "price": "Price per unit",
            "total": "Total for this item"
        }
    ],
    "description": "Any additional notes or details"
}

If any field is not visible or uncertain, use null for that field.
Return ONLY valid JSON, no markdown formatting or additional text.`

const RawTextPrompt = "Extract all visible text from this receipt image. Return only plain text without any markdown."

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrUnsupportedImage = errors.New("file is not a supported image")
	ErrNotConfigured    = errors.New("receipt extraction is not configured")
)

// Image is a loaded receipt image ready to be sent to a Generator.
type Image struct {
	Data     []byte
	MimeType string
}

// Generator sends a prompt plus an image to a multimodal model and returns its text reply.
type Generator interface {
	Generate(ctx context.Context, prompt string, image Image) (string, error)
}

// Result mirrors a single extraction attempt. Failures are reported in the
// value, never as an error.
type Result struct {
	Success bool    `json:"success"`
	Data    *Fields `json:"data"`
	RawText *string `json:"raw_text"`
	Error   string  `json:"error,omitempty"`
}

type Extractor struct {
	generator Generator
	logger    *slog.Logger
}

func NewExtractor(generator Generator, logger *slog.Logger) *Extractor {
	return &Extractor{
		generator: generator,
		logger:    logger,
	}
}

// LoadImage sniffs data and rejects anything that is not an image.
func LoadImage(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Image{}, fmt.Errorf("%w: detected %s", ErrUnsupportedImage, mt.String())
	}
	return Image{Data: data, MimeType: mt.String()}, nil
}

// Extract runs the structured request and, when it succeeds, a best-effort
// raw text request.
func (e *Extractor) Extract(ctx context.Context, data []byte) Result {
	img, err := LoadImage(data)
	if err != nil {
		return Result{Error: err.Error()}
	}

	reply, err := e.generator.Generate(ctx, StructuredPrompt, img)
	if err != nil {
		e.logger.Error("structured extraction request failed", "error", err)
		return Result{Error: err.Error()}
	}

	raw, err := ParseStructured(reply)
	if err != nil {
		e.logger.Warn("structured extraction reply is not valid JSON", "error", err)
		return Result{Error: err.Error()}
	}

	fields := Normalize(raw)

	var rawText *string
	if text, err := e.generator.Generate(ctx, RawTextPrompt, img); err != nil {
		e.logger.Warn("raw text extraction failed", "error", err)
	} else {
		trimmed := strings.TrimSpace(text)
		rawText = &trimmed
	}

	return Result{
		Success: true,
		Data:    &fields,
		RawText: rawText,
	}
}

// StripCodeFence removes a leading ```json or ``` and a trailing ``` from a model reply.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	}
	if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	if strings.HasSuffix(text, "```") {
		text = text[:len(text)-len("```")]
	}
	return strings.TrimSpace(text)
}

// ParseStructured decodes a model reply into a raw field map.
func ParseStructured(reply string) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(StripCodeFence(reply))))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse extraction reply: %w", err)
	}
	if raw == nil {
		return nil, errors.New("parse extraction reply: expected a JSON object")
	}
	return raw, nil
}

// Unavailable is a Generator that always fails, used when no model is configured.
type Unavailable struct{}

func (Unavailable) Generate(context.Context, string, Image) (string, error) {
	return "", ErrNotConfigured
}
