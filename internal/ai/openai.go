package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI backs the correction and letter contracts with chat completions and
// JSON-schema structured output.
type OpenAI struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

func NewOpenAI(apiKey, baseURL, model string, timeout time.Duration, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if model == "" {
		model = defaultOpenAIModel
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
	return &OpenAI{client: openai.NewClient(opts...), model: model, logger: logger}
}

func (o *OpenAI) Correct(ctx context.Context, req CorrectionRequest) (*CorrectionResponse, error) {
	raw, err := o.complete(ctx, buildCorrectionSystemPrompt(req.WantsEmailVariant), buildCorrectionUserPrompt(req.Text),
		"report_correction", correctionSchema)
	if err != nil {
		return nil, err
	}
	return decodeCorrection(raw)
}

func (o *OpenAI) GenerateLetter(ctx context.Context, req LetterRequest) (*LetterResponse, error) {
	raw, err := o.complete(ctx, buildLetterSystemPrompt(req.Type), buildLetterUserPrompt(req.Variables),
		"justification_letter", letterSchema)
	if err != nil {
		return nil, err
	}
	return decodeLetter(raw)
}

func (o *OpenAI) complete(ctx context.Context, system, user, schemaName string, schema any) (string, error) {
	o.logger.Debug("openai request", "model", o.model, "schema", schemaName,
		"system_prompt_len", len(system), "user_prompt_len", len(user))

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &RemoteServiceError{Status: apiErr.StatusCode, Body: truncateStr(apiErr.Error(), 200)}
		}
		return "", &NetworkError{Op: "openai chat completion", Err: err}
	}

	o.logger.Debug("openai response", "choices", len(resp.Choices), "elapsed", time.Since(start))

	if len(resp.Choices) == 0 {
		return "", &MalformedResponseError{Reason: "no choices in OpenAI response"}
	}
	return resp.Choices[0].Message.Content, nil
}
