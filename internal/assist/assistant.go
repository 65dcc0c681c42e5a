// Package assist wraps the Gemini API behind the three listing helpers the
// exchange offers: polishing a description, suggesting a price, and
// generating image alt text. Each helper is a single call with no retries;
// a failure surfaces to the caller and the form keeps whatever the user
// typed.
package assist

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/brandlab/exchange/internal/domain"
)

// DefaultModel is the generation model used when config leaves it blank.
const DefaultModel = "gemini-1.5-flash"

// Assistant issues prompt-shaped requests to Gemini.
type Assistant struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// New creates an Assistant. The API key is required; the model falls back to
// DefaultModel when empty.
func New(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Assistant, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("assist: api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("assist: create client: %w", err)
	}
	return &Assistant{
		client: client,
		model:  model,
		logger: logger.With(slog.String("component", "assist")),
	}, nil
}

// ImproveDescription rewrites a draft description into concise, appealing
// marketplace copy. The item's name, kind, and condition give the model
// context.
func (a *Assistant) ImproveDescription(ctx context.Context, name string, kind domain.Kind, condition string, draft string) (string, error) {
	if strings.TrimSpace(draft) == "" {
		return "", domain.ErrMissingField
	}
	prompt := fmt.Sprintf(
		"Improve this marketplace listing description for a %s item named %q (condition: %s). "+
			"Keep it concise, appealing, and factual, under 140 words. Return only the improved description.\n\n%s",
		strings.ToLower(string(kind)), name, orUnspecified(condition), draft)
	return a.generate(ctx, prompt)
}

// SuggestPrice asks the model for a fair price in the given currency and
// returns the first numeric token of the reply. A reply with no parseable
// number yields a nil price and no error.
func (a *Assistant) SuggestPrice(ctx context.Context, name string, kind domain.Kind, condition string, pm domain.PaymentMethod, currency string, baseline string) (*float64, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.ErrMissingField
	}
	prompt := fmt.Sprintf(
		"Suggest a fair market price in %s (%s payment) for a %s item named %q, condition %s. "+
			"Current asking price, if any: %s. Respond with just the number, no currency symbol and no explanation.",
		currency, string(pm), strings.ToLower(string(kind)), name, orUnspecified(condition), orUnspecified(baseline))
	text, err := a.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParsePrice(text), nil
}

// AltText produces a short accessibility description for a listing photo.
func (a *Assistant) AltText(ctx context.Context, name string, kind domain.Kind) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", domain.ErrMissingField
	}
	prompt := fmt.Sprintf(
		"Write image alt text, at most 12 words, for a marketplace photo of a %s item named %q. "+
			"Return only the alt text.",
		strings.ToLower(string(kind)), name)
	return a.generate(ctx, prompt)
}

func orUnspecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unspecified"
	}
	return s
}

func (a *Assistant) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), nil)
	if err != nil {
		a.logger.Warn("generation failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("assist: generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("assist: empty response")
	}
	return text, nil
}

var numberRe = regexp.MustCompile(`-?\d+(\.\d+)?`)

// ParsePrice extracts the first numeric token from model output, nil when
// none parses.
func ParsePrice(text string) *float64 {
	match := numberRe.FindString(text)
	if match == "" {
		return nil
	}
	n, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &n
}
