package ai

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestSchemasRequireEveryProperty(t *testing.T) {
	var s struct {
		Required             []string `json:"required"`
		AdditionalProperties *bool    `json:"additionalProperties"`
	}
	if err := json.Unmarshal([]byte(schemaString(correctionSchema)), &s); err != nil {
		t.Fatalf("decoding schema: %v", err)
	}
	if len(s.Required) != 2 {
		t.Fatalf("correction schema required = %v, want both properties", s.Required)
	}
	if s.AdditionalProperties == nil || *s.AdditionalProperties {
		t.Fatal("correction schema must forbid additional properties")
	}
}

func TestDecodeCorrectionToleratesProse(t *testing.T) {
	raw := "Here you go:\n```json\n{\"correctedText\": \"Ronda ok.\", \"emailVariant\": \"\"}\n```"
	resp, err := decodeCorrection(raw)
	if err != nil {
		t.Fatalf("decodeCorrection: %v", err)
	}
	if resp.CorrectedText != "Ronda ok." {
		t.Fatalf("CorrectedText = %q", resp.CorrectedText)
	}
}

func TestDecodeFailuresAreMalformed(t *testing.T) {
	for _, raw := range []string{"", "no json here", `{"correctedText": ""}`, `{"correctedText": 12}`} {
		_, err := decodeCorrection(raw)
		var malformed *MalformedResponseError
		if !errors.As(err, &malformed) {
			t.Fatalf("decodeCorrection(%q) error = %v, want MalformedResponseError", raw, err)
		}
	}
	if _, err := decodeLetter(`{"letterText": "   "}`); err == nil {
		t.Fatal("blank letter must be rejected")
	}
}

func TestUnwrapEnvelope(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   string
	}{
		{
			name:   "structured output",
			stdout: `{"type":"result","structured_output":{"letterText":"A"},"result":"ignored"}`,
			want:   `{"letterText":"A"}`,
		},
		{
			name:   "result string",
			stdout: `{"type":"result","result":"{\"letterText\":\"B\"}"}`,
			want:   `{"letterText":"B"}`,
		},
		{
			name:   "result object",
			stdout: `{"type":"result","result":{"letterText":"C"}}`,
			want:   `{"letterText":"C"}`,
		},
		{
			name:   "raw output",
			stdout: `not json`,
			want:   `not json`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unwrapEnvelope([]byte(tt.stdout), discard); got != tt.want {
				t.Fatalf("unwrapEnvelope = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLetterUserPromptIsSorted(t *testing.T) {
	got := buildLetterUserPrompt(map[string]string{"role": "Vigilante", "employeeName": "Maria"})
	if strings.Index(got, "employeeName") > strings.Index(got, "role") {
		t.Fatalf("variables not sorted:\n%s", got)
	}
}

func TestCorrectionPromptMentionsEmailOnlyWhenAsked(t *testing.T) {
	if !strings.Contains(buildCorrectionSystemPrompt(true), "email body") {
		t.Fatal("email instructions missing")
	}
	if strings.Contains(buildCorrectionSystemPrompt(false), "email body") {
		t.Fatal("email instructions present when not requested")
	}
}
