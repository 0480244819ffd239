package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// cleanEnv returns os.Environ() with Claude Code session vars removed
// so the subprocess doesn't get blocked by the nested-session check.
func cleanEnv() []string {
	blocked := map[string]bool{
		"CLAUDECODE":                           true,
		"CLAUDE_CODE_ENTRYPOINT":               true,
		"CLAUDE_CODE_EXPERIMENTAL_AGENT_TEAMS": true,
	}
	var env []string
	for _, e := range os.Environ() {
		key, _, _ := strings.Cut(e, "=")
		if !blocked[key] {
			env = append(env, e)
		}
	}
	return env
}

// ClaudeCLI runs the local claude binary in print mode with a JSON schema.
type ClaudeCLI struct {
	Model  string
	Binary string
	logger *slog.Logger
}

func NewClaudeCLI(model string, logger *slog.Logger) *ClaudeCLI {
	if model == "" {
		model = "sonnet"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ClaudeCLI{Model: model, Binary: "claude", logger: logger}
}

func (c *ClaudeCLI) Correct(ctx context.Context, req CorrectionRequest) (*CorrectionResponse, error) {
	result, err := c.run(ctx, buildCorrectionSystemPrompt(req.WantsEmailVariant), buildCorrectionUserPrompt(req.Text),
		schemaString(correctionSchema))
	if err != nil {
		return nil, err
	}
	return decodeCorrection(result)
}

func (c *ClaudeCLI) GenerateLetter(ctx context.Context, req LetterRequest) (*LetterResponse, error) {
	result, err := c.run(ctx, buildLetterSystemPrompt(req.Type), buildLetterUserPrompt(req.Variables),
		schemaString(letterSchema))
	if err != nil {
		return nil, err
	}
	return decodeLetter(result)
}

func (c *ClaudeCLI) run(ctx context.Context, systemPrompt, userPrompt, schema string) (string, error) {
	args := []string{
		"-p", userPrompt,
		"--output-format", "json",
		"--model", c.Model,
		"--system-prompt", systemPrompt,
		"--json-schema", schema,
		"--no-session-persistence",
		"--effort", "low",
		"--no-thinking",
	}

	c.logger.Debug("invoking claude CLI",
		"model", c.Model,
		"system_prompt_len", len(systemPrompt),
		"user_prompt_len", len(userPrompt),
		"schema_len", len(schema),
	)

	cmd := exec.CommandContext(ctx, c.Binary, args...)
	cmd.Env = cleanEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	startTime := time.Now()
	err := cmd.Run()
	elapsed := time.Since(startTime)

	c.logger.Debug("claude CLI finished",
		"elapsed", elapsed,
		"stdout_bytes", stdout.Len(),
		"stderr_bytes", stderr.Len(),
		"error", err,
	)

	if err != nil {
		if ctx.Err() != nil {
			return "", &NetworkError{Op: "claude CLI", Err: ctx.Err()}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &RemoteServiceError{Status: exitErr.ExitCode(), Body: truncateStr(stderr.String(), 200)}
		}
		return "", &NetworkError{Op: "claude CLI", Err: err}
	}

	return unwrapEnvelope(stdout.Bytes(), c.logger), nil
}

// unwrapEnvelope strips the claude --output-format json envelope, preferring
// structured_output (typed JSON from --json-schema) over result.
func unwrapEnvelope(stdout []byte, logger *slog.Logger) string {
	var rawWrapper struct {
		Type             string          `json:"type"`
		Subtype          string          `json:"subtype"`
		Result           json.RawMessage `json:"result"`
		StructuredOutput json.RawMessage `json:"structured_output"`
	}
	if err := json.Unmarshal(stdout, &rawWrapper); err != nil {
		logger.Debug("wrapper parse failed, treating as raw output", "error", err)
		return string(stdout)
	}

	if len(rawWrapper.StructuredOutput) > 0 && rawWrapper.StructuredOutput[0] == '{' {
		return string(rawWrapper.StructuredOutput)
	}

	if len(rawWrapper.Result) > 0 {
		// result is a JSON string (e.g. "{\"correctedText\":...}")
		var resultStr string
		if err := json.Unmarshal(rawWrapper.Result, &resultStr); err == nil && resultStr != "" {
			return resultStr
		}
		// result is a JSON object directly
		if rawWrapper.Result[0] == '{' {
			return string(rawWrapper.Result)
		}
		logger.Debug("result field present but could not unwrap",
			"result_preview", truncateStr(string(rawWrapper.Result), 500),
		)
	}

	return string(stdout)
}

// String identifies the backend in logs.
func (c *ClaudeCLI) String() string {
	return fmt.Sprintf("claude-cli(%s)", c.Model)
}
