package gen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/openai/openai-go"
)

const llmCallTimeout = 50 * time.Second

// LLM produces a raw text completion for a rendered prompt. The engine only
// renders prompts and parses responses; transports and retry policy live
// behind this interface.
type LLM interface {
	Generate(systemPrompt, prompt string) (string, error)
}

type OpenAI struct {
	client openai.Client
	model  string
	temp   float64
}

func NewOpenAI(model string, temp float64) *OpenAI {
	return &OpenAI{
		client: openai.NewClient(),
		model:  model,
		temp:   temp,
	}
}

func (o *OpenAI) Generate(systemPrompt, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), llmCallTimeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if len(systemPrompt) > 0 {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	res, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       o.model,
		Temperature: openai.Float(o.temp),
	})
	if err != nil {
		slog.Error("openai error: chat completions failed", "error", err)
		return "", fmt.Errorf("openai generation failed: %w", err)
	}

	return res.Choices[0].Message.Content, nil
}

// Endpoint talks to any OpenAI-compatible chat completions server (vLLM,
// llama.cpp, a local proxy) over plain HTTP.
type Endpoint struct {
	client *resty.Client
	model  string
	temp   float64
}

func NewEndpoint(baseURL, apiKey, model string, temp float64) *Endpoint {
	client := resty.New().SetBaseURL(baseURL).SetTimeout(llmCallTimeout)
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &Endpoint{client: client, model: model, temp: temp}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (e *Endpoint) Generate(systemPrompt, prompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if len(systemPrompt) > 0 {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	res, err := e.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"model":       e.model,
			"messages":    messages,
			"temperature": e.temp,
		}).
		Post("/v1/chat/completions")
	if err != nil {
		slog.Error("endpoint error: chat completions failed", "error", err)
		return "", fmt.Errorf("endpoint generation failed: %w", err)
	}
	if !res.IsSuccess() {
		slog.Error("endpoint returned error", "status_code", res.StatusCode(), "body", res.String())
		return "", fmt.Errorf("endpoint returned status %d", res.StatusCode())
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		return "", fmt.Errorf("error parsing endpoint response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("endpoint response contains no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
