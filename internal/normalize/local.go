package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	sentencePunct = ".!?,;:"
	terminalPunct = ".!?…"
)

// LocalCorrector is the deterministic fallback. It runs a fixed sequence of
// string transforms and is idempotent: Correct(Correct(s)) == Correct(s).
type LocalCorrector struct {
	typos *TypoTable
}

func NewLocalCorrector(typos *TypoTable) *LocalCorrector {
	return &LocalCorrector{typos: typos}
}

// Correct returns the corrected text, or "" when s has no visible content.
func (c *LocalCorrector) Correct(s string) string {
	s = normalizeWhitespace(s)
	s = collapseWhitespace(s)
	if s == "" {
		return ""
	}
	s = spacePunctuation(s)
	s = capitalizeFirst(s)
	s = c.typos.Apply(s)
	return ensureTerminal(s)
}

// normalizeWhitespace maps every exotic space to ' ', unifies line endings and
// drops zero-width characters.
func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n':
			return r
		case '\r', '\u2028', '\u2029', '\u0085':
			return '\n'
		case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
			return -1
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}

// collapseWhitespace squeezes runs of spaces, trims every line and keeps at
// most one blank line between paragraphs.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// spacePunctuation removes spaces before sentence punctuation and makes sure
// one follows it. After a colon a space is only added between a letter and a
// word, so times like 07:15 stay intact.
func spacePunctuation(s string) string {
	rs := []rune(s)
	out := make([]rune, 0, len(rs)+8)
	for i, r := range rs {
		var next rune
		if i+1 < len(rs) {
			next = rs[i+1]
		}
		if r == ' ' && strings.ContainsRune(sentencePunct, next) {
			continue
		}
		out = append(out, r)

		switch {
		case r == ':':
			if len(out) >= 2 && unicode.IsLetter(out[len(out)-2]) && isWordRune(next) {
				out = append(out, ' ')
			}
		case strings.ContainsRune(sentencePunct, r):
			if unicode.IsLetter(next) {
				out = append(out, ' ')
			}
		}
	}
	return string(out)
}

func ensureTerminal(s string) string {
	last, size := utf8.DecodeLastRuneInString(s)
	switch {
	case strings.ContainsRune(terminalPunct, last):
		return s
	case strings.ContainsRune(",;:", last):
		return s[:len(s)-size] + "."
	default:
		return s + "."
	}
}
