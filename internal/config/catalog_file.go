package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tair/catalog-sync/internal/catalog/domain"
)

// CatalogFile is the YAML document listing providers and the category table
type CatalogFile struct {
	Providers  []ProviderEntry `yaml:"providers"`
	Categories CategoryTable   `yaml:"categories"`
}

// ProviderEntry configures one upstream. Values may reference ${ENV}.
type ProviderEntry struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	APIKey   string `yaml:"api_key"`
}

type CategoryEntry struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
}

// CategoryTable maps raw upstream names onto local categories
type CategoryTable struct {
	Default  CategoryEntry            `yaml:"default"`
	Mappings map[string]CategoryEntry `yaml:"mappings"`
}

// LoadCatalogFile reads and validates the catalog file at path
func LoadCatalogFile(path string) (*CatalogFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return ParseCatalogFile(raw)
}

// ParseCatalogFile decodes YAML and expands ${ENV} references
func ParseCatalogFile(raw []byte) (*CatalogFile, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Providers))
	for i := range file.Providers {
		p := &file.Providers[i]
		p.BaseURL = os.ExpandEnv(p.BaseURL)
		p.Username = os.ExpandEnv(p.Username)
		p.APIKey = os.ExpandEnv(p.APIKey)

		if p.ID == "" {
			return nil, fmt.Errorf("catalog file: provider #%d has no id", i)
		}
		if p.BaseURL == "" {
			return nil, fmt.Errorf("catalog file: provider %s has no base_url", p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("catalog file: provider %s listed twice", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Name == "" {
			p.Name = p.ID
		}
	}

	for raw, entry := range file.Categories.Mappings {
		if entry.Slug == "" {
			return nil, fmt.Errorf("catalog file: category mapping %q has no slug", raw)
		}
	}

	return &file, nil
}

// ProviderConfigs converts entries to domain providers
func (f *CatalogFile) ProviderConfigs() []domain.ProviderConfig {
	out := make([]domain.ProviderConfig, 0, len(f.Providers))
	for _, p := range f.Providers {
		out = append(out, domain.ProviderConfig{
			ID:       p.ID,
			Name:     p.Name,
			BaseURL:  p.BaseURL,
			Username: p.Username,
			APIKey:   p.APIKey,
		})
	}
	return out
}

// CategoryMapper builds the finite mapping table with its default bucket
func (f *CatalogFile) CategoryMapper() *domain.CategoryMapper {
	mappings := make(map[string]domain.CategoryDefinition, len(f.Categories.Mappings))
	for raw, entry := range f.Categories.Mappings {
		mappings[raw] = domain.CategoryDefinition{Slug: entry.Slug, Name: entry.Name}
	}
	return domain.NewCategoryMapper(mappings, domain.CategoryDefinition{
		Slug: f.Categories.Default.Slug,
		Name: f.Categories.Default.Name,
	})
}
