package copywriter

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Networkcaretaker/real-estate-backend/internal/model"
)

// DefaultModel is the Gemini model used for copy generation.
const DefaultModel = "gemini-2.0-flash"

// Gemini calls the Generative Language API. Requests are throttled locally so
// a burst of uploads cannot exhaust the project quota.
type Gemini struct {
	svc     *generativelanguage.Service
	model   string
	limiter *rate.Limiter
}

// NewGemini builds a client authenticated with an API key.
func NewGemini(ctx context.Context, apiKey, model string, requestsPerSecond float64) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	svc, err := generativelanguage.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create service: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Gemini{
		svc:     svc,
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

// Generate sends prompt, plus image when non-nil, and returns the text of the
// first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string, image []byte) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	parts := []*generativelanguage.Part{{Text: prompt}}
	if len(image) > 0 {
		parts = append(parts, &generativelanguage.Part{
			InlineData: &generativelanguage.Blob{
				MimeType: http.DetectContentType(image),
				Data:     base64.StdEncoding.EncodeToString(image),
			},
		})
	}
	req := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{Role: "user", Parts: parts}},
	}

	resp, err := g.svc.Models.GenerateContent("models/"+g.model, req).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
			return "", fmt.Errorf("gemini: rate limited: %w", err)
		}
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty response from generative model", model.ErrProcessing)
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
