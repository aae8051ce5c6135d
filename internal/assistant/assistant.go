// Package assistant wraps the text generation providers used to draft task
// descriptions and summarize progress reports. Callers always get text back:
// provider failures turn into a short degraded message.
package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Degraded results returned instead of errors.
const (
	SuggestUnconfigured = "API Key not configured. Please add an AI API key."
	SuggestFailed       = "Error connecting to AI service."
	AnalyzeUnconfigured = "API Key not configured."
	AnalyzeFailed       = "Error analyzing progress."
	AnalyzeNoReports    = "No progress reports submitted yet."
)

// Assistant produces helper text for the board.
type Assistant interface {
	Suggest(ctx context.Context, prompt string) string
	Summarize(ctx context.Context, reports []string) string
}

// generator is implemented by each provider.
type generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// New returns the assistant described by cfg. An empty provider or key
// yields an assistant that only answers with the unconfigured messages.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Assistant, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Provider == "" || cfg.APIKey == "" {
		logger.Info("assistant disabled")
		return Disabled{}, nil
	}

	var (
		gen generator
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		gen, err = NewGemini(ctx, cfg.APIKey, cfg.Model)
	case "openai":
		gen = NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown assistant provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s assistant: %w", cfg.Provider, err)
	}
	logger.Info("assistant enabled", slog.String("provider", cfg.Provider), slog.String("model", cfg.Model))
	return &textAssistant{gen: gen, logger: logger}, nil
}

// SuggestionPrompt asks for a description and checklist for a task title.
// scope names the project, or is empty for a standalone task.
func SuggestionPrompt(title, scope string) string {
	if strings.TrimSpace(scope) == "" {
		scope = "Ad-hoc single task"
	}
	return fmt.Sprintf("I am creating a task management system. The task title is %q (%s). "+
		"Please generate a concise but professional description and a checklist of 3-5 subtasks for this job. "+
		"Format it as Markdown.", title, scope)
}

type textAssistant struct {
	gen    generator
	logger *slog.Logger
}

func (a *textAssistant) Suggest(ctx context.Context, prompt string) string {
	out, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.Warn("suggestion failed", slog.String("error", err.Error()))
		return SuggestFailed
	}
	return out
}

func (a *textAssistant) Summarize(ctx context.Context, reports []string) string {
	if len(reports) == 0 {
		return AnalyzeNoReports
	}
	prompt := "Here are the progress reports for a task:\n" + strings.Join(reports, "\n") +
		"\nSummarize the overall progress, highlight any major blockers mentioned, and estimate if the task is on track."
	out, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.Warn("report analysis failed", slog.String("error", err.Error()))
		return AnalyzeFailed
	}
	return out
}

// Close releases the provider client when it holds one.
func (a *textAssistant) Close() error {
	if c, ok := a.gen.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Disabled answers every request with the unconfigured message.
type Disabled struct{}

func (Disabled) Suggest(context.Context, string) string { return SuggestUnconfigured }

func (Disabled) Summarize(_ context.Context, reports []string) string {
	if len(reports) == 0 {
		return AnalyzeNoReports
	}
	return AnalyzeUnconfigured
}
