package catalog

import (
	"testing"

	"geekshop/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducts(t *testing.T) {
	products := Products()
	require.Len(t, products, 28)
	assert.Equal(t, 1, products[0].ID)
	assert.Equal(t, "1999 ₽", products[0].Cost)

	// копия не должна менять встроенный каталог
	products[0].Name = "changed"
	assert.NotEqual(t, "changed", Products()[0].Name)
}

func TestCategories(t *testing.T) {
	categories := Categories()
	require.Len(t, categories, 7)
	assert.Equal(t, domain.AllCategories, categories[0].Name)
}

func TestFilterByCategory(t *testing.T) {
	products := Products()

	assert.Len(t, FilterByCategory(products, domain.AllCategories), len(products))
	assert.Len(t, FilterByCategory(products, ""), len(products))

	vr := FilterByCategory(products, "VR")
	require.Len(t, vr, 5)
	for _, p := range vr {
		assert.Equal(t, "VR", p.Category)
	}

	assert.Empty(t, FilterByCategory(products, "Нет такой"))
}

func TestParseRejectsDuplicateIDs(t *testing.T) {
	raw := []byte(`
products:
  - id: 1
    name: a
  - id: 1
    name: b
`)
	_, err := parse(raw)
	require.Error(t, err)
}
