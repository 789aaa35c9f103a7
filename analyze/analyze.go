// Package analyze asks a multimodal LLM for a print-production review of an
// image: resolution for the intended size, text legibility, composition and
// bleed recommendations. The model's markdown verdict is returned as-is and
// rendered to HTML for browser clients.
package analyze

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/yuin/goldmark"

	"github.com/BuragaIonut/daisler/observability"
	"github.com/BuragaIonut/daisler/raster"
)

// Config selects and tunes the vision model.
type Config struct {
	Provider    string // "openai", "anthropic" or "ollama"
	Model       string
	MaxTokens   int
	Temperature float64
}

// DefaultConfig targets gpt-4o with the settings the analysis prompt was
// written against.
func DefaultConfig() Config {
	return Config{Provider: "openai", Model: "gpt-4o", MaxTokens: 1500, Temperature: 0.1}
}

// Report carries the model's verdict in both source and rendered form.
type Report struct {
	Markdown string
	HTML     string
}

// Analyzer runs print analysis against a vision model.
type Analyzer struct {
	llm llms.Model
	cfg Config
	log observability.Logger
}

// New builds an Analyzer for the configured provider. Credentials come from
// the environment: OPENAI_API_KEY, ANTHROPIC_API_KEY or OLLAMA_HOST.
func New(cfg Config, log observability.Logger) (*Analyzer, error) {
	if log == nil {
		log = observability.NopLogger{}
	}
	var (
		model llms.Model
		err   error
	)
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		model, err = newOpenAI(cfg)
	case "anthropic":
		model, err = newAnthropic(cfg)
	case "ollama":
		model, err = newOllama(cfg)
	default:
		return nil, fmt.Errorf("analyze: unsupported vision provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("analyze: create vision client: %w", err)
	}
	return &Analyzer{llm: model, cfg: cfg, log: log}, nil
}

// NewWithModel wires an existing model, mainly for tests.
func NewWithModel(model llms.Model, cfg Config, log observability.Logger) *Analyzer {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Analyzer{llm: model, cfg: cfg, log: log}
}

func newOpenAI(cfg Config) (llms.Model, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	opts := []openai.Option{openai.WithModel(cfg.Model), openai.WithToken(apiKey)}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	return openai.New(opts...)
}

func newAnthropic(cfg Config) (llms.Model, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}
	return anthropic.New(anthropic.WithModel(cfg.Model), anthropic.WithToken(apiKey))
}

func newOllama(cfg Config) (llms.Model, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://127.0.0.1:11434"
	}
	return ollama.New(ollama.WithModel(cfg.Model), ollama.WithServerURL(host))
}

// AnalyzeImage reviews img for the given use case.
func (a *Analyzer) AnalyzeImage(ctx context.Context, img image.Image, useCase string) (Report, error) {
	w, h, ratio := raster.Dimensions(img)
	prompt := buildPrompt(w, h, ratio, useCase)

	encoded, err := raster.Encode(img, raster.PNG)
	if err != nil {
		return Report{}, fmt.Errorf("analyze: encode image: %w", err)
	}

	// OpenAI-compatible endpoints take a data URL; Anthropic and Ollama
	// want the raw bytes.
	var imagePart llms.ContentPart
	if strings.EqualFold(a.cfg.Provider, "openai") || a.cfg.Provider == "" {
		imagePart = llms.ImageURLPart("data:image/png;base64," + base64.StdEncoding.EncodeToString(encoded))
	} else {
		imagePart = llms.BinaryPart("image/png", encoded)
	}

	a.log.Debug("vision analysis call",
		observability.String("provider", a.cfg.Provider),
		observability.String("model", a.cfg.Model),
		observability.Int("width", w),
		observability.Int("height", h))

	completion, err := a.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt), imagePart},
		},
	}, llms.WithMaxTokens(a.cfg.MaxTokens), llms.WithTemperature(a.cfg.Temperature))
	if err != nil {
		return Report{}, fmt.Errorf("analyze: vision model: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Report{}, fmt.Errorf("analyze: vision model returned no choices")
	}

	markdown := completion.Choices[0].Content
	html, err := RenderHTML(markdown)
	if err != nil {
		return Report{}, err
	}
	return Report{Markdown: markdown, HTML: html}, nil
}

// RenderHTML converts the model's markdown verdict for browser clients.
func RenderHTML(markdown string) (string, error) {
	var out strings.Builder
	if err := goldmark.Convert([]byte(markdown), &out); err != nil {
		return "", fmt.Errorf("analyze: render markdown: %w", err)
	}
	return out.String(), nil
}

func buildPrompt(width, height int, ratio float64, useCase string) string {
	orientation := "square"
	switch {
	case width > height:
		orientation = "landscape"
	case height > width:
		orientation = "portrait"
	}
	return fmt.Sprintf(`You are a professional print expert analyzing an image for print production.
Please analyze this image for the following use case: %s

Image specifications:
- Dimensions: %dx%dpx
- Aspect ratio: %.2f
- Orientation: %s

Please analyze and provide specific feedback on these key areas:

1. FORMAT SUITABILITY: Resolution for intended print size, aspect ratio fit, overall quality
2. TEXT ANALYSIS: Presence/readability of text, font size/clarity concerns
3. OBJECT COMPOSITION: Multiple objects? Should elements be separated? Complexity
4. POSITIONING & CENTERING: Subject centering and composition balance for print
5. BLEED REQUIREMENTS: Need for bleed, recommended amount (mm), cutting type (rectangular or complex)

Provide clear, actionable recommendations for optimal print results.
`, useCase, width, height, ratio, orientation)
}
