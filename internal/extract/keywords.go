package extract

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeywordRule resolves a category label containing any of Match to a catalog
// entry whose name contains any of Resolve.
type KeywordRule struct {
	Match   []string `yaml:"match"`
	Resolve []string `yaml:"resolve"`
}

// KeywordTable is the ordered fallback used when no catalog name contains the
// label (or the other way round). The first rule yielding a candidate wins.
type KeywordTable struct {
	Rules []KeywordRule `yaml:"keywords"`
}

func DefaultKeywordTable() *KeywordTable {
	return &KeywordTable{Rules: []KeywordRule{
		{
			Match:   []string{"colisão", "colisao", "collision", "acidente", "accident", "batida"},
			Resolve: []string{"acidente", "accident"},
		},
		{
			Match:   []string{"furto", "roubo", "theft", "robbery", "assalto"},
			Resolve: []string{"furto", "roubo", "theft", "robbery"},
		},
		{
			Match:   []string{"verificação", "verificacao", "verification"},
			Resolve: []string{"verificação", "verificacao", "verification"},
		},
	}}
}

// LoadKeywordTable reads a YAML file of the form:
//
//	keywords:
//	  - match: [furto, roubo]
//	    resolve: [furto, roubo]
func LoadKeywordTable(path string) (*KeywordTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword table: %w", err)
	}
	var t KeywordTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse keyword table yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("keyword table %s: %w", path, err)
	}
	return &t, nil
}

// Validate rejects rules that could never match or never resolve.
func (t *KeywordTable) Validate() error {
	for i, rule := range t.Rules {
		if !hasTerm(rule.Match) {
			return fmt.Errorf("rule %d: match needs at least one term", i)
		}
		if !hasTerm(rule.Resolve) {
			return fmt.Errorf("rule %d: resolve needs at least one term", i)
		}
	}
	return nil
}

func hasTerm(terms []string) bool {
	for _, term := range terms {
		if strings.TrimSpace(fold(term)) != "" {
			return true
		}
	}
	return false
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if term = strings.TrimSpace(fold(term)); term != "" && strings.Contains(s, term) {
			return true
		}
	}
	return false
}
