package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/smallbiznis/glazeops/internal/whatsapp/domain"
	"google.golang.org/api/option"
)

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-3-5-haiku-latest"
	defaultGeminiModel    = "gemini-1.5-flash"

	anthropicVersion = "2023-06-01"
	maxOutputTokens  = 800
	maxErrorBody     = 2048
)

// Generator produces a completion for a single prompt. Model, system prompt
// and temperature are fixed when the generator is built.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type options struct {
	baseURL      string
	apiKey       string
	model        string
	systemPrompt string
	temperature  float64
}

type openAIGenerator struct {
	http *http.Client
	opts options
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (g *openAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body := openAIRequest{
		Model:       g.opts.model,
		Temperature: g.opts.temperature,
		MaxTokens:   maxOutputTokens,
	}
	if g.opts.systemPrompt != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: g.opts.systemPrompt})
	}
	body.Messages = append(body.Messages, openAIMessage{Role: "user", Content: prompt})
	body.ResponseFormat.Type = "json_object"

	headers := map[string]string{"Authorization": "Bearer " + g.opts.apiKey}
	var out openAIResponse
	if err := postJSON(ctx, g.http, g.opts.baseURL+"/chat/completions", headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", domain.ErrAssistantUnavailable)
	}
	return out.Choices[0].Message.Content, nil
}

type anthropicGenerator struct {
	http *http.Client
	opts options
}

type anthropicRequest struct {
	Model       string          `json:"model"`
	System      string          `json:"system,omitempty"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (g *anthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body := anthropicRequest{
		Model:       g.opts.model,
		System:      g.opts.systemPrompt,
		Messages:    []openAIMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxOutputTokens,
		Temperature: g.opts.temperature,
	}
	headers := map[string]string{
		"x-api-key":         g.opts.apiKey,
		"anthropic-version": anthropicVersion,
	}
	var out anthropicResponse
	if err := postJSON(ctx, g.http, g.opts.baseURL+"/messages", headers, body, &out); err != nil {
		return "", err
	}
	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: empty content", domain.ErrAssistantUnavailable)
	}
	return text.String(), nil
}

// geminiModel is the part of *genai.GenerativeModel the generator calls.
type geminiModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type geminiGenerator struct {
	model geminiModel
}

func newGeminiGenerator(ctx context.Context, opts options) (*geminiGenerator, error) {
	clientOpts := []option.ClientOption{option.WithAPIKey(opts.apiKey)}
	if opts.baseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.baseURL))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAssistantUnavailable, err)
	}

	model := client.GenerativeModel(opts.model)
	model.SetTemperature(float32(opts.temperature))
	model.SetMaxOutputTokens(maxOutputTokens)
	model.ResponseMIMEType = "application/json"
	if opts.systemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(opts.systemPrompt)}}
	}
	return &geminiGenerator{model: model}, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAssistantUnavailable, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty candidates", domain.ErrAssistantUnavailable)
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: empty candidates", domain.ErrAssistantUnavailable)
	}
	return text.String(), nil
}

func postJSON(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAssistantUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: status %d: %s", domain.ErrAssistantUnavailable, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAssistantUnavailable, err)
	}
	return nil
}
