package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const defaultOllamaBaseURL = "http://localhost:11434"

type ollamaConfig struct {
	BaseURL string `json:"base_url"`
}

// ollamaProvider talks to a local Ollama server. Clients are bound to a
// model at construction, so one is built lazily per model name.
type ollamaProvider struct {
	baseURL string

	mu      sync.Mutex
	clients map[string]*ollama.LLM
}

func (p *ollamaProvider) Name() string {
	return "ollama"
}

func (p *ollamaProvider) client(model string) (*ollama.LLM, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama model is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if llm, ok := p.clients[model]; ok {
		return llm, nil
	}
	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(p.baseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("init ollama client: %w", err)
	}
	p.clients[model] = llm
	return llm, nil
}

func (p *ollamaProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	llm, err := p.client(model)
	if err != nil {
		return "", err
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, llm, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (p *ollamaProvider) Embed(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	_ = taskType // ollama embedding models take no task hint
	llm, err := p.client(model)
	if err != nil {
		return nil, err
	}
	vectors, err := llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}

func createOllamaFactory(args interface{}) (IProvider, error) {
	cfg := &ollamaConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &ollamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		clients: map[string]*ollama.LLM{},
	}, nil
}

func init() {
	Register("ollama", createOllamaFactory)
}
