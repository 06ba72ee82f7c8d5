package invoker

import (
	"context"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

type openaiProvider struct {
	client *openai.Client
	cfg    Config
}

func newOpenAIProvider(cfg Config) *openaiProvider {
	return &openaiProvider{
		client: openai.NewClient(cfg.APIKey),
		cfg:    cfg,
	}
}

func (p *openaiProvider) Model() string { return p.cfg.Model }

func (p *openaiProvider) Complete(ctx context.Context, req Request) (Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	request := openai.ChatCompletionRequest{
		Model:     p.cfg.Model,
		MaxTokens: p.cfg.MaxTokens,
		Messages:  messages,
	}

	var response openai.ChatCompletionResponse
	err := withRetry(ctx, p.cfg.Retry, func() error {
		var apiErr error
		response, apiErr = p.client.CreateChatCompletion(ctx, request)
		return apiErr
	})
	if err != nil {
		return Response{}, classify(err)
	}

	if len(response.Choices) == 0 {
		return Response{}, errors.New("empty completion from OpenAI API")
	}

	return Response{
		Text:         response.Choices[0].Message.Content,
		InputTokens:  int64(response.Usage.PromptTokens),
		OutputTokens: int64(response.Usage.CompletionTokens),
	}, nil
}
