// Package catalog loads the incident category list that the extractor
// resolves labels against.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rondalog/rondalog/internal/model"
)

type file struct {
	Categories []model.Category `yaml:"categories"`
}

// Default is the catalog used when no file is configured.
func Default() model.Catalog {
	return model.Catalog{
		{ID: "acidente", DisplayName: "Acidente de Trânsito"},
		{ID: "furto-roubo", DisplayName: "Furto/Roubo"},
		{ID: "verificacao", DisplayName: "Verificação de Alarme"},
		{ID: "dano", DisplayName: "Dano ao Patrimônio"},
		{ID: "acesso", DisplayName: "Acesso Não Autorizado"},
		{ID: "suspeito", DisplayName: "Atitude Suspeita"},
		{ID: "incendio", DisplayName: "Incêndio"},
		{ID: "outros", DisplayName: "Outros"},
	}
}

// Load reads a YAML catalog. A missing file yields the default catalog.
func Load(path string) (model.Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	if err := Validate(f.Categories); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return model.Catalog(f.Categories), nil
}

// Save writes c as YAML, creating parent directories.
func Save(path string, c model.Catalog) error {
	if err := Validate(c); err != nil {
		return err
	}
	data, err := yaml.Marshal(file{Categories: c})
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating catalog dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate requires every entry to have an id and a name, and ids to be unique.
func Validate(c []model.Category) error {
	if len(c) == 0 {
		return errors.New("catalog has no categories")
	}
	seen := make(map[string]bool, len(c))
	for i, cat := range c {
		id := strings.TrimSpace(cat.ID)
		if id == "" || strings.TrimSpace(cat.DisplayName) == "" {
			return fmt.Errorf("category %d: id and name are required", i)
		}
		if seen[id] {
			return fmt.Errorf("duplicate category id %q", id)
		}
		seen[id] = true
	}
	return nil
}
