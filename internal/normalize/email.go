package normalize

import "strings"

// EmailTemplate wraps a corrected report in a fixed salutation and signature.
type EmailTemplate struct {
	Salutation string
	Signature  string
}

func DefaultEmailTemplate() EmailTemplate {
	return EmailTemplate{
		Salutation: "Prezados,",
		Signature:  "Atenciosamente,\nEquipe de Segurança",
	}
}

// Render returns salutation, body and signature separated by blank lines.
func (t EmailTemplate) Render(body string) string {
	parts := make([]string, 0, 3)
	if s := strings.TrimSpace(t.Salutation); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, strings.TrimSpace(body))
	if s := strings.TrimSpace(t.Signature); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n\n")
}
