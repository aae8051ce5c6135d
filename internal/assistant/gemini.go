package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini generates text with Google's Gemini models.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini connects a Gemini client for modelName.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: client.GenerativeModel(modelName)}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no response generated")
	}
	return b.String(), nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
