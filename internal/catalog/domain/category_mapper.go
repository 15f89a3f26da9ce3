package domain

import "strings"

const (
	DefaultCategorySlug = "uncategorized"
	DefaultCategoryName = "Uncategorized"
)

// CategoryDefinition is a local category an upstream name maps onto
type CategoryDefinition struct {
	Slug string
	Name string
}

// CategoryMapper translates upstream category names through a finite table.
// Anything the table does not name lands in the default bucket.
type CategoryMapper struct {
	table    map[string]CategoryDefinition
	fallback CategoryDefinition
}

// NewCategoryMapper builds a mapper. An empty fallback slug means the
// built-in "uncategorized" bucket.
func NewCategoryMapper(mappings map[string]CategoryDefinition, fallback CategoryDefinition) *CategoryMapper {
	if fallback.Slug == "" {
		fallback = CategoryDefinition{Slug: DefaultCategorySlug, Name: DefaultCategoryName}
	}
	if fallback.Name == "" {
		fallback.Name = fallback.Slug
	}

	table := make(map[string]CategoryDefinition, len(mappings))
	for raw, def := range mappings {
		if def.Name == "" {
			def.Name = def.Slug
		}
		table[normalizeCategoryKey(raw)] = def
	}
	return &CategoryMapper{table: table, fallback: fallback}
}

// Map returns the local category for raw and whether the table matched it
func (m *CategoryMapper) Map(raw string) (CategoryDefinition, bool) {
	if def, ok := m.table[normalizeCategoryKey(raw)]; ok {
		return def, true
	}
	return m.fallback, false
}

// Default returns the fallback bucket
func (m *CategoryMapper) Default() CategoryDefinition {
	return m.fallback
}

func normalizeCategoryKey(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}
