package normalize

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Typo is one misspelling and its correction. From is matched
// case-insensitively on whole words; To keeps an initial capital if the match
// had one.
type Typo struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// TypoTable is an ordered list of substitutions applied by the local
// corrector. It is data: load it from a file for the wording your teams
// actually get wrong.
type TypoTable struct {
	Typos []Typo `yaml:"typos"`

	compiled []*regexp.Regexp
}

// DefaultTypoTable is sample data drawn from real patrol reports. It is not a
// general spelling model.
func DefaultTypoTable() *TypoTable {
	t, err := NewTypoTable([]Typo{
		{From: "nao", To: "não"},
		{From: "ocorrencia", To: "ocorrência"},
		{From: "ocorrencias", To: "ocorrências"},
		{From: "alteracao", To: "alteração"},
		{From: "alteracoes", To: "alterações"},
		{From: "vigilancia", To: "vigilância"},
		{From: "seguranca", To: "segurança"},
		{From: "veiculo", To: "veículo"},
		{From: "veiculos", To: "veículos"},
		{From: "patio", To: "pátio"},
		{From: "proximo", To: "próximo"},
		{From: "horario", To: "horário"},
		{From: "estacionamneto", To: "estacionamento"},
		{From: "portao", To: "portão"},
		{From: "entao", To: "então"},
		{From: "tambem", To: "também"},
		{From: "ja", To: "já"},
		{From: "vc", To: "você"},
		{From: "pq", To: "porque"},
		{From: "tb", To: "também"},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// NewTypoTable validates and compiles typos.
func NewTypoTable(typos []Typo) (*TypoTable, error) {
	t := &TypoTable{Typos: typos}
	if err := t.compile(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTypoTable reads a YAML file of the form:
//
//	typos:
//	  - from: ocorrencia
//	    to: ocorrência
func LoadTypoTable(path string) (*TypoTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read typo table: %w", err)
	}
	var t TypoTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse typo table yaml: %w", err)
	}
	if err := t.compile(); err != nil {
		return nil, fmt.Errorf("typo table %s: %w", path, err)
	}
	return &t, nil
}

func (t *TypoTable) compile() error {
	t.compiled = make([]*regexp.Regexp, len(t.Typos))
	for i, typo := range t.Typos {
		from := strings.TrimSpace(typo.From)
		to := strings.TrimSpace(typo.To)
		if from == "" || to == "" {
			return fmt.Errorf("entry %d: from and to must both be set", i)
		}
		if to != typo.To || strings.Contains(to, "  ") || strings.ContainsAny(to, "\n\t") {
			return fmt.Errorf("entry %d (%q): to must not carry extra whitespace", i, typo.From)
		}
		if strings.ContainsAny(to, sentencePunct) {
			return fmt.Errorf("entry %d (%q): to must not contain sentence punctuation", i, typo.From)
		}
		if !sameEdges(from, to) {
			return fmt.Errorf("entry %d (%q): from and to must start and end with the same kind of character", i, typo.From)
		}
		t.Typos[i] = Typo{From: from, To: to}
		t.compiled[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(from))
	}
	// A correction that the table would rewrite again breaks idempotence.
	for i, typo := range t.Typos {
		if got := t.Apply(typo.To); got != typo.To {
			return fmt.Errorf("entry %d: correction %q is rewritten to %q by the table", i, typo.To, got)
		}
	}
	return nil
}

// Apply runs every substitution in order.
func (t *TypoTable) Apply(s string) string {
	if t == nil {
		return s
	}
	for i, re := range t.compiled {
		s = replaceWord(s, re, t.Typos[i].To)
	}
	return s
}

// Len reports the number of entries.
func (t *TypoTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Typos)
}

func replaceWord(s string, re *regexp.Regexp, to string) string {
	matches := re.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var sb strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if !wordBoundaryBefore(s, start) || !wordBoundaryAfter(s, end) {
			continue
		}
		sb.WriteString(s[last:start])
		sb.WriteString(matchCase(s[start:end], to))
		last = end
	}
	sb.WriteString(s[last:])
	return sb.String()
}

// sameEdges reports whether a and b agree on whether they start and end with
// a letter. Punctuation spacing and capitalization depend on it.
func sameEdges(a, b string) bool {
	af, _ := utf8.DecodeRuneInString(a)
	bf, _ := utf8.DecodeRuneInString(b)
	al, _ := utf8.DecodeLastRuneInString(a)
	bl, _ := utf8.DecodeLastRuneInString(b)
	return unicode.IsLetter(af) == unicode.IsLetter(bf) && unicode.IsLetter(al) == unicode.IsLetter(bl)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func wordBoundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func wordBoundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func matchCase(matched, to string) string {
	first, _ := utf8.DecodeRuneInString(matched)
	if !unicode.IsUpper(first) {
		return to
	}
	return capitalizeFirst(to)
}

func capitalizeFirst(s string) string {
	for i, r := range s {
		if unicode.IsLetter(r) {
			if unicode.IsUpper(r) {
				return s
			}
			return s[:i] + string(unicode.ToUpper(r)) + s[i+utf8.RuneLen(r):]
		}
	}
	return s
}
