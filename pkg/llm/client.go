// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"name-smart-go/internal/config"
	"name-smart-go/pkg/log"
)

// ErrMalformedJSON 表示补全内容不是合法的 JSON 或与 out 的结构不符。
var ErrMalformedJSON = errors.New("malformed completion json")

// Client defines the interface for an LLM client.
type Client interface {
	// CompleteJSON 以 JSON 模式请求一次补全，并把返回内容解析到 out。
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, out any) error
}

type openAIClient struct {
	cfg    config.LLMConfig
	client openai.Client
}

// NewClient creates a chat completion client for an OpenAI-compatible API.
func NewClient(cfg config.LLMConfig) Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openAIClient{cfg: cfg, client: openai.NewClient(opts...)}
}

func (c *openAIClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string, out any) error {
	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.cfg.Model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if g := c.cfg.Generation; g.Temperature > 0 {
		params.Temperature = openai.Float(g.Temperature)
	}
	if g := c.cfg.Generation; g.TopP > 0 {
		params.TopP = openai.Float(g.TopP)
	}
	if g := c.cfg.Generation; g.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(g.MaxTokens))
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to call chat completion api: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("chat completion returned no choices")
	}
	choice := resp.Choices[0]
	if choice.FinishReason != "stop" {
		log.Warnf("[LLMClient] 补全未正常结束, finish_reason: %s", choice.FinishReason)
	}
	log.Infof("[LLMClient] 补全完成, tokens: %d, 耗时: %s", resp.Usage.TotalTokens, time.Since(start))

	if err := json.Unmarshal([]byte(choice.Message.Content), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}
