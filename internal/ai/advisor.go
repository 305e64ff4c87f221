// README: Gemini-backed food handling advisor for donation listings.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiAdvisor generates short storage and transport notes for a listed
// food item. It is an optional enrichment: callers must tolerate errors.
type GeminiAdvisor struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiAdvisor initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiAdvisor(ctx context.Context, apiKey string) (*GeminiAdvisor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Flash keeps latency and cost low; the notes are advisory only.
	model := client.GenerativeModel("gemini-2.0-flash")
	model.SetTemperature(0.3)

	return &GeminiAdvisor{client: client, model: model}, nil
}

// Close cleans up the Gemini client resources.
func (a *GeminiAdvisor) Close() {
	a.client.Close()
}

// HandlingNotes returns two or three short handling tips for the item, e.g.
// temperature control and transport precautions.
func (a *GeminiAdvisor) HandlingNotes(ctx context.Context, foodType string, quantity float64, unit string, expiry time.Time) (string, error) {
	prompt := fmt.Sprintf(
		"You are advising a food rescue volunteer. Give 2-3 short bullet points on safe storage and transport of: %.1f %s of %s, expiring %s. Plain text, no markdown, max 50 words total.",
		quantity, unit, foodType, expiry.Format("2006-01-02"),
	)

	resp, err := a.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates from Gemini")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(out.String()), nil
}
