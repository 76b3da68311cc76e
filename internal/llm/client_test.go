package llm

import (
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestFromEnvRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")
	if _, err := FromEnv(); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestFromEnvParsesGenerationSettings(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("LLM_API_KEY", "fallback-key")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("GEMINI_TEMPERATURE", "0.7")
	t.Setenv("GEMINI_TOP_K", "40")
	t.Setenv("GEMINI_MAX_OUTPUT_TOKENS", "512")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.APIKey != "fallback-key" || cfg.Model != defaultModel {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Temperature < 0.69 || cfg.Temperature > 0.71 {
		t.Fatalf("temperature = %v", cfg.Temperature)
	}
	if cfg.TopK == nil || *cfg.TopK != 40 || cfg.MaxTokens == nil || *cfg.MaxTokens != 512 {
		t.Fatalf("unexpected sampling config %+v", cfg)
	}
	if cfg.TopP != nil {
		t.Fatalf("TopP should be unset")
	}
}

func TestExtractTextSkipsEmptyCandidates(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			nil,
			{Content: &genai.Content{}},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Pond A "), genai.Text("is healthy.")}}},
		},
	}
	got, err := ExtractText(resp)
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if got != "Pond A is healthy." {
		t.Fatalf("text = %q", got)
	}
	if _, err := ExtractText(&genai.GenerateContentResponse{}); err == nil {
		t.Fatalf("expected error for empty response")
	}
}
