//go:build integration

package ai_test

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/rondalog/rondalog/internal/ai"
)

func skipIfNoClaude(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("claude"); err != nil {
		t.Skip("claude CLI not found in PATH, skipping integration test")
	}
}

// testLogger creates a verbose slog.Logger that writes to stderr.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestClaudeCLI_Correct(t *testing.T) {
	skipIfNoClaude(t)

	cli := ai.NewClaudeCLI("haiku", testLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	raw := "data: 10/03/2024\nhora: 07:15\nlocal: portaria 2\nronda realizada sem alteracoes nao houve ocorrencia"
	resp, err := cli.Correct(ctx, ai.CorrectionRequest{Text: raw, WantsEmailVariant: true})
	if err != nil {
		t.Fatalf("Correct failed: %v", err)
	}

	t.Logf("Corrected: %q", resp.CorrectedText)
	t.Logf("Email: %q", resp.EmailVariant)

	if !strings.Contains(resp.CorrectedText, "10/03/2024") {
		t.Errorf("corrected text lost the date: %q", resp.CorrectedText)
	}
	if !strings.Contains(resp.CorrectedText, "07:15") {
		t.Errorf("corrected text lost the time: %q", resp.CorrectedText)
	}
	if resp.EmailVariant == "" {
		t.Error("expected an email variant")
	}
}

func TestClaudeCLI_GenerateLetter(t *testing.T) {
	skipIfNoClaude(t)

	cli := ai.NewClaudeCLI("haiku", testLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	resp, err := cli.GenerateLetter(ctx, ai.LetterRequest{
		Type: "Tardiness",
		Variables: map[string]string{
			"employeeName": "Maria Souza",
			"role":         "Vigilante",
			"date":         "10/03/2024",
			"reason":       "pane no transporte público",
		},
	})
	if err != nil {
		t.Fatalf("GenerateLetter failed: %v", err)
	}

	t.Logf("Letter:\n%s", resp.LetterText)
	if !strings.Contains(resp.LetterText, "Maria Souza") {
		t.Errorf("letter does not name the employee")
	}
}
