// Package seed loads the built-in catalog and generates development data.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"collectorhub/internal/models"
	"collectorhub/internal/repository"
	"collectorhub/internal/validation"

	"gopkg.in/yaml.v3"
)

//go:embed builtin.yml
var builtinYAML []byte

// Catalog is the set of categories every deployment starts with.
type Catalog struct {
	Categories []CatalogCategory `yaml:"categories"`
}

type CatalogCategory struct {
	Name        string         `yaml:"name"`
	Slug        string         `yaml:"slug"`
	Description string         `yaml:"description"`
	Groups      []CatalogGroup `yaml:"groups"`
}

type CatalogGroup struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

// ParseCatalog decodes and validates a catalog document. Slugs must be valid
// and unique across categories and groups.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]bool)
	check := func(name, slug string) error {
		if name == "" {
			return fmt.Errorf("catalog entry %q has no name", slug)
		}
		if err := validation.ValidateSlug(slug); err != nil {
			return fmt.Errorf("catalog entry %q: %w", name, err)
		}
		if seen[slug] {
			return fmt.Errorf("catalog slug %q is duplicated", slug)
		}
		seen[slug] = true
		return nil
	}
	for _, c := range catalog.Categories {
		if err := check(c.Name, c.Slug); err != nil {
			return nil, err
		}
		for _, g := range c.Groups {
			if err := check(g.Name, g.Slug); err != nil {
				return nil, err
			}
		}
	}
	return &catalog, nil
}

// BuiltinCatalog returns the embedded catalog.
func BuiltinCatalog() (*Catalog, error) {
	return ParseCatalog(builtinYAML)
}

// Apply inserts any catalog entries missing from the store. Existing rows,
// matched by slug, are left as they are.
func (c *Catalog) Apply(ctx context.Context, repo repository.MembershipRepository) error {
	for _, item := range c.Categories {
		category := &models.Category{Name: item.Name, Slug: item.Slug, Description: item.Description}
		if err := repo.EnsureCategory(ctx, category); err != nil {
			return fmt.Errorf("ensure category %s: %w", item.Slug, err)
		}
		for _, g := range item.Groups {
			group := &models.InterestGroup{CategoryID: category.ID, Name: g.Name, Slug: g.Slug, Description: g.Description}
			if err := repo.EnsureGroup(ctx, group); err != nil {
				return fmt.Errorf("ensure group %s: %w", g.Slug, err)
			}
		}
	}
	return nil
}

// Builtins applies the embedded catalog.
func Builtins(ctx context.Context, repo repository.MembershipRepository) error {
	catalog, err := BuiltinCatalog()
	if err != nil {
		return err
	}
	return catalog.Apply(ctx, repo)
}
