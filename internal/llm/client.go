package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultModel       = "gemini-1.5-flash"
	defaultTemperature = 0.2
)

// ErrMissingAPIKey disables the pond assistant when neither GEMINI_API_KEY
// nor LLM_API_KEY is set.
var ErrMissingAPIKey = errors.New("missing GEMINI_API_KEY or LLM_API_KEY")

// Sampling holds the optional generation knobs. Nil fields keep the model default.
type Sampling struct {
	Temperature float32
	TopP        *float32
	TopK        *int32
	MaxTokens   *int32
}

// Config selects the Gemini model used by the pond assistant.
type Config struct {
	APIKey string
	Model  string
	Sampling
}

// FromEnv reads GEMINI_API_KEY (or LLM_API_KEY), GEMINI_MODEL,
// GEMINI_TEMPERATURE, GEMINI_TOP_P, GEMINI_TOP_K and GEMINI_MAX_OUTPUT_TOKENS.
func FromEnv() (Config, error) {
	key := firstEnv("GEMINI_API_KEY", "LLM_API_KEY")
	if key == "" {
		return Config{}, ErrMissingAPIKey
	}
	cfg := Config{
		APIKey: key,
		Model:  firstEnv("GEMINI_MODEL"),
		Sampling: Sampling{
			Temperature: defaultTemperature,
			TopP:        envFloat32("GEMINI_TOP_P"),
			TopK:        envInt32("GEMINI_TOP_K"),
			MaxTokens:   envInt32("GEMINI_MAX_OUTPUT_TOKENS"),
		},
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if t := envFloat32("GEMINI_TEMPERATURE"); t != nil {
		cfg.Temperature = *t
	}
	return cfg, nil
}

// Client answers operator questions through Gemini.
type Client struct {
	sdk        *genai.Client
	model      string
	generation genai.GenerationConfig
}

// New dials the Gemini API.
func New(ctx context.Context, cfg Config) (*Client, error) {
	sdk, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create generative ai client: %w", err)
	}
	log.Printf("pond assistant ready; model=%s", cfg.Model)
	return &Client{sdk: sdk, model: cfg.Model, generation: cfg.Sampling.generationConfig()}, nil
}

func (s Sampling) generationConfig() genai.GenerationConfig {
	var gc genai.GenerationConfig
	gc.SetTemperature(s.Temperature)
	if s.TopP != nil {
		gc.SetTopP(*s.TopP)
	}
	if s.TopK != nil {
		gc.SetTopK(*s.TopK)
	}
	if s.MaxTokens != nil {
		gc.SetMaxOutputTokens(*s.MaxTokens)
	}
	return gc
}

// Close releases the SDK connection.
func (c *Client) Close() error {
	return c.sdk.Close()
}

// GenerateText sends the non-empty userParts under systemPrompt and returns
// the text of the first candidate that has any.
func (c *Client) GenerateText(ctx context.Context, systemPrompt string, userParts ...string) (string, error) {
	parts := textParts(userParts)
	if len(parts) == 0 {
		return "", errors.New("user prompt is empty")
	}

	// A fresh model per call keeps SystemInstruction request scoped.
	model := c.sdk.GenerativeModel(c.model)
	model.GenerationConfig = c.generation
	if systemPrompt != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return ExtractText(resp)
}

func textParts(raw []string) []genai.Part {
	parts := make([]genai.Part, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, genai.Text(p))
		}
	}
	return parts
}

// ExtractText joins the text parts of the first candidate that has any.
func ExtractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("empty LLM response")
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		if sb.Len() > 0 {
			return sb.String(), nil
		}
	}
	return "", errors.New("no text candidates in LLM response")
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envFloat32(key string) *float32 {
	raw := firstEnv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		log.Printf("ignoring invalid %s=%q", key, raw)
		return nil
	}
	f := float32(v)
	return &f
}

func envInt32(key string) *int32 {
	raw := firstEnv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || v <= 0 {
		log.Printf("ignoring invalid %s=%q", key, raw)
		return nil
	}
	i := int32(v)
	return &i
}
