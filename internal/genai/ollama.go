package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// OllamaProvider runs against a local Ollama server. Used for development
// when no hosted backend is configured.
type OllamaProvider struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewOllamaProvider(baseURL, model string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3:latest"
	}
	return &OllamaProvider{
		BaseURL: baseURL,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type ollamaGenerateReq struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResp struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

func (p *OllamaProvider) Generate(ctx context.Context, contents string, params map[string]any) (string, Usage, error) {
	if p.Client == nil {
		return "", Usage{}, errors.New("ollama: http client is nil")
	}

	options := map[string]any{}
	if v, ok := floatParam(params, "temperature"); ok {
		options["temperature"] = v
	}
	if v, ok := floatParam(params, "top_p"); ok {
		options["top_p"] = v
	}
	if v, ok := intParam(params, "top_k"); ok {
		options["top_k"] = v
	}
	if v, ok := intParam(params, "max_output_tokens"); ok {
		options["num_predict"] = v
	}

	reqBody := ollamaGenerateReq{
		Model:   p.Model,
		Prompt:  contents,
		Stream:  false,
		Options: options,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", Usage{}, err
	}

	url := fmt.Sprintf("%s/api/generate", p.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", Usage{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", Usage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", Usage{}, &GenerationError{Message: fmt.Sprintf("ollama: status %d", resp.StatusCode)}
	}

	var decoded ollamaGenerateResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", Usage{}, err
	}
	if decoded.Error != "" {
		return "", Usage{}, &GenerationError{Message: decoded.Error}
	}

	usage := Usage{
		InputTokens:  decoded.PromptEvalCount,
		OutputTokens: decoded.EvalCount,
	}
	return decoded.Response, usage, nil
}
