package ai

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

// correctionOutput and letterOutput are what the language-model backends must
// return. Every property is required so the schemas work in strict mode.
type correctionOutput struct {
	CorrectedText string `json:"correctedText" jsonschema:"description=The corrected report text"`
	EmailVariant  string `json:"emailVariant" jsonschema:"description=The report rewritten as an email body or empty when not requested"`
}

type letterOutput struct {
	LetterText string `json:"letterText" jsonschema:"description=The finished letter"`
}

var (
	correctionSchema = generateSchema[correctionOutput]()
	letterSchema     = generateSchema[letterOutput]()
)

func generateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func schemaString(s *jsonschema.Schema) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func buildCorrectionSystemPrompt(wantsEmail bool) string {
	email := "Set emailVariant to an empty string."
	if wantsEmail {
		email = "Also set emailVariant to the same report written as a short, formal email body addressed to the security supervision, without subject line."
	}
	return fmt.Sprintf(`You correct security-shift reports written in Brazilian Portuguese by patrol staff.

Rules:
- Fix spelling, accents, punctuation and capitalization
- Keep every fact, name, plate, time, date and place exactly as written
- Keep labels such as "Data:", "Hora:", "Local:" and "Ocorrência:" and keep each on its own line
- Do not add information, opinions or greetings
- Write correctedText in Portuguese
- %s

Return valid JSON matching the required schema.`, email)
}

func buildCorrectionUserPrompt(text string) string {
	return fmt.Sprintf("Report to correct:\n%s", text)
}

func buildLetterSystemPrompt(letterType string) string {
	return fmt.Sprintf(`You write formal justification letters in Brazilian Portuguese for a security team's human-resources file.

Letter type: %s

Rules:
- Use only the variables provided; never invent names, dates or reasons
- Dates are already formatted as DD/MM/YYYY; dateList, when present, enumerates every day covered
- Formal register, first person, addressed "À Coordenação de Segurança"
- End with a place for the employee's signature
- No markdown

Return valid JSON matching the required schema.`, letterType)
}

func buildLetterUserPrompt(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("Variables:\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "- %s: %s\n", k, vars[k])
	}
	return sb.String()
}

// extractJSONObject returns the outermost {...} span of s, for models that wrap
// their JSON in prose or code fences.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func decodeCorrection(raw string) (*CorrectionResponse, error) {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return nil, &MalformedResponseError{Reason: "no JSON object in model output"}
	}
	var out correctionOutput
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return nil, &MalformedResponseError{Reason: "decoding correction", Err: err}
	}
	if strings.TrimSpace(out.CorrectedText) == "" {
		return nil, &MalformedResponseError{Reason: "correctedText is empty"}
	}
	return &CorrectionResponse{CorrectedText: out.CorrectedText, EmailVariant: out.EmailVariant}, nil
}

func decodeLetter(raw string) (*LetterResponse, error) {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return nil, &MalformedResponseError{Reason: "no JSON object in model output"}
	}
	var out letterOutput
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return nil, &MalformedResponseError{Reason: "decoding letter", Err: err}
	}
	if strings.TrimSpace(out.LetterText) == "" {
		return nil, &MalformedResponseError{Reason: "letterText is empty"}
	}
	return &LetterResponse{LetterText: out.LetterText}, nil
}
