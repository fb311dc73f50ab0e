// internal/catalog/catalog.go
package catalog

import (
	_ "embed"
	"fmt"

	"geekshop/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var rawCatalog []byte

type seedFile struct {
	Categories []string         `yaml:"categories"`
	Products   []domain.Product `yaml:"products"`
}

var seed = mustParse(rawCatalog)

func mustParse(raw []byte) seedFile {
	sf, err := parse(raw)
	if err != nil {
		panic(err)
	}
	return sf
}

func parse(raw []byte) (seedFile, error) {
	var sf seedFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return seedFile{}, fmt.Errorf("parse catalog: %w", err)
	}
	seen := make(map[int]bool, len(sf.Products))
	for _, p := range sf.Products {
		if seen[p.ID] {
			return seedFile{}, fmt.Errorf("duplicate product id %d", p.ID)
		}
		seen[p.ID] = true
	}
	return sf, nil
}

// Products возвращает встроенный каталог (копию)
func Products() []domain.Product {
	out := make([]domain.Product, len(seed.Products))
	copy(out, seed.Products)
	return out
}

// Categories отдаёт фиксированный список, "All" идёт первым
func Categories() []domain.Category {
	out := make([]domain.Category, 0, len(seed.Categories))
	for _, name := range seed.Categories {
		out = append(out, domain.Category{Name: name})
	}
	return out
}

// FilterByCategory keeps products of one category; "All" or "" keeps everything.
func FilterByCategory(products []domain.Product, category string) []domain.Product {
	if category == "" || category == domain.AllCategories {
		return products
	}
	filtered := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Category == category {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
