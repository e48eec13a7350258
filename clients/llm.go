package clients

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const DefaultLLMModel = "gpt-4o-mini"

const enhanceSystemPrompt = `You are a helpful language assistant. Your job is to improve the clarity, grammar, and tone of short texts.

Instructions:
- First, correct any spelling or grammatical issues.
- Then, if requested, rewrite the sentence using the specified tone (e.g. friendly, professional, casual, persuasive).
- Do not add or remove meaning from the original text.
- Only respond with the corrected or rewritten sentence, no explanations.`

var tonePrompts = map[string]string{
	"friendly":     "Make this sound friendly: ",
	"professional": "Make this sound professional: ",
	"casual":       "Make this sound casual: ",
	"persuasive":   "Make this more persuasive: ",
}

// LLMEnhancer corrects grammar and then rewrites for tone with two chat
// completions against any OpenAI-compatible endpoint.
type LLMEnhancer struct {
	client openai.Client
	model  string
}

type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	HTTP    *HTTP
}

func NewLLMEnhancer(cfg LLMConfig) *LLMEnhancer {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTP != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTP.Client()))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultLLMModel
	}
	return &LLMEnhancer{client: openai.NewClient(opts...), model: model}
}

func (l *LLMEnhancer) Enhance(ctx context.Context, text, tone string) (Enhancement, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Enhancement{}, fmt.Errorf("%w: input is empty", ErrEnhancementFailed)
	}

	corrected, err := l.complete(ctx, "Correct grammar and improve clarity:\n"+text)
	if err != nil {
		return Enhancement{}, fmt.Errorf("%w: grammar: %w", ErrEnhancementFailed, err)
	}

	instruction, ok := tonePrompts[strings.ToLower(tone)]
	if !ok {
		instruction = tonePrompts["friendly"]
	}
	enhanced, err := l.complete(ctx, instruction+corrected)
	if err != nil {
		return Enhancement{}, fmt.Errorf("%w: tone: %w", ErrEnhancementFailed, err)
	}

	return Enhancement{Original: text, Corrected: corrected, Enhanced: enhanced}, nil
}

func (l *LLMEnhancer) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(enhanceSystemPrompt),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(l.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty message content")
	}
	return content, nil
}
