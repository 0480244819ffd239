package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicAPI backs the correction and letter contracts with the Messages API.
// The model is asked for a bare JSON object, which is decoded leniently.
type AnthropicAPI struct {
	client anthropic.Client
	model  string
	logger *slog.Logger
}

func NewAnthropicAPI(apiKey, baseURL, model string, timeout time.Duration, logger *slog.Logger) *AnthropicAPI {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicAPI{client: anthropic.NewClient(opts...), model: model, logger: logger}
}

func (a *AnthropicAPI) Correct(ctx context.Context, req CorrectionRequest) (*CorrectionResponse, error) {
	system := buildCorrectionSystemPrompt(req.WantsEmailVariant) + "\n\nSchema:\n" + schemaString(correctionSchema)
	raw, err := a.complete(ctx, system, buildCorrectionUserPrompt(req.Text))
	if err != nil {
		return nil, err
	}
	return decodeCorrection(raw)
}

func (a *AnthropicAPI) GenerateLetter(ctx context.Context, req LetterRequest) (*LetterResponse, error) {
	system := buildLetterSystemPrompt(req.Type) + "\n\nSchema:\n" + schemaString(letterSchema)
	raw, err := a.complete(ctx, system, buildLetterUserPrompt(req.Variables))
	if err != nil {
		return nil, err
	}
	return decodeLetter(raw)
}

func (a *AnthropicAPI) complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &RemoteServiceError{Status: apiErr.StatusCode, Body: truncateStr(apiErr.Error(), 200)}
		}
		return "", &NetworkError{Op: "anthropic messages", Err: err}
	}

	a.logger.Debug("anthropic response",
		"model", a.model,
		"tokens_in", message.Usage.InputTokens,
		"tokens_out", message.Usage.OutputTokens,
		"elapsed", time.Since(start),
	)

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", &MalformedResponseError{Reason: "no text content in Anthropic response"}
}
