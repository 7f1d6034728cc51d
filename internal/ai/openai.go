package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultOpenAIBaseURL     = "https://api.openai.com/v1"
	DefaultOpenAIModel       = "gpt-4o"
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenAIProvider talks to any OpenAI compatible chat completions endpoint
// (OpenAI itself, OpenRouter, ...).
type OpenAIProvider struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	// optional OpenRouter attribution headers
	SiteURL string
	AppName string
	Client  *http.Client
}

type openAIMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIChatReq struct {
	Model          string                `json:"model"`
	Messages       []openAIMsg           `json:"messages"`
	Stream         bool                  `json:"stream"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIChatResp struct {
	Choices []struct {
		Message openAIMsg `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewOpenAIProvider(baseURL, apiKey, model string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		Name:    "openai",
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func NewOpenRouterProvider(baseURL, apiKey, model, siteURL, appName string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = DefaultOpenRouterBaseURL
	}
	if model == "" {
		model = "openrouter/auto"
	}
	p := NewOpenAIProvider(baseURL, apiKey, model)
	p.Name = "openrouter"
	p.SiteURL = siteURL
	p.AppName = appName
	return p
}

func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	return p.complete(ctx, messages, nil)
}

func (p *OpenAIProvider) ChatJSON(ctx context.Context, messages []Message) (string, error) {
	return p.complete(ctx, messages, &openAIResponseFormat{Type: "json_object"})
}

func (p *OpenAIProvider) complete(ctx context.Context, messages []Message, format *openAIResponseFormat) (string, error) {
	name := p.Name
	if name == "" {
		name = "openai"
	}
	if p.Client == nil {
		return "", fmt.Errorf("%s: http client is nil", name)
	}
	if strings.TrimSpace(p.APIKey) == "" {
		return "", fmt.Errorf("%s: api key is required", name)
	}
	model := strings.TrimSpace(p.Model)
	if model == "" {
		return "", fmt.Errorf("%s: model is required", name)
	}

	reqBody := openAIChatReq{
		Model:          model,
		Stream:         false,
		ResponseFormat: format,
		Messages: func() []openAIMsg {
			out := make([]openAIMsg, 0, len(messages))
			for _, m := range messages {
				out = append(out, openAIMsg{Role: m.Role, Content: m.Content})
			}
			return out
		}(),
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(p.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	if p.SiteURL != "" {
		req.Header.Set("HTTP-Referer", p.SiteURL)
	}
	if p.AppName != "" {
		req.Header.Set("X-Title", p.AppName)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("%s: %s", name, msg)
	}

	var decoded openAIChatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", errors.New(decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("%s: empty response", name)
	}
	return decoded.Choices[0].Message.Content, nil
}
