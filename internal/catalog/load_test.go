package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, 48, c.Len())

	p, ok := c.Find(1)
	require.True(t, ok)
	assert.Equal(t, "Fresh Bananas", p.Name)
	assert.Equal(t, "fresh", p.Category)
	assert.Equal(t, "assets/images/products/fresh/bananas.jpg", p.Image)

	assert.Len(t, c.Categories(), 8)
	assert.Len(t, c.Locations(), 2)
	assert.Len(t, c.Priorities(), 3)
	assert.Len(t, c.TimeSlots().All(), 24)
}

func TestDefault_Shared(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_CUE(t *testing.T) {
	path := writeFile(t, "catalog.cue", `
products: [
	{id: 1, name: "Rice 5kg", category: "pantry"},
	{id: 2, name: "Soap", description: "Bar soap", category: "household", image: "soap.jpg"},
]
locations: [{id: "madang", name: "Madang Branch"}]
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	p, ok := c.Find(1)
	require.True(t, ok)
	assert.Equal(t, "", p.Description, "description defaults to empty")
	assert.Equal(t, "Madang Branch", c.Locations()[0].Name)
	assert.Empty(t, c.TimeSlots().All())
}

func TestLoad_CUESchemaViolation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"non-positive id", `products: [{id: 0, name: "X", category: "c"}]`},
		{"missing name", `products: [{id: 1, category: "c"}]`},
		{"bad priority", `products: [], priorities: [{id: "whenever", name: "x"}]`},
		{"syntax error", `products: [{{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.cue", tt.content))
			require.Error(t, err)

			var le *LoadError
			assert.ErrorAs(t, err, &le)
		})
	}
}

func TestLoad_CUEDuplicateID(t *testing.T) {
	path := writeFile(t, "dup.cue", `
products: [
	{id: 3, name: "A", category: "c"},
	{id: 3, name: "B", category: "c"},
]
`)
	_, err := Load(path)
	require.Error(t, err)

	var dup *DuplicateProductError
	assert.ErrorAs(t, err, &dup)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "catalog.yaml", `
products:
  - id: 10
    name: Chicken Breast
    description: Boneless
    category: meat
priorities:
  - id: express
    name: Express
timeSlots:
  morning: ["9:30 AM - 10:00 AM"]
`)

	c, err := Load(path)
	require.NoError(t, err)

	p, ok := c.Find(10)
	require.True(t, ok)
	assert.Equal(t, "meat", p.Category)
	assert.Equal(t, "express", c.Priorities()[0].ID)
	assert.Equal(t, []string{"9:30 AM - 10:00 AM"}, c.TimeSlots().All())
}

func TestParseYAML_UnknownField(t *testing.T) {
	_, err := ParseYAML("inline", strings.NewReader(`
products:
  - id: 1
    name: X
    category: c
    price: 3
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price")
}

func TestParseYAML_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", ``, "empty catalog"},
		{"zero id", "products:\n  - {id: 0, name: X, category: c}\n", "id must be positive"},
		{"missing name", "products:\n  - {id: 1, category: c}\n", "name is required"},
		{"missing category", "products:\n  - {id: 1, name: X}\n", "category is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML("inline", strings.NewReader(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load(writeFile(t, "catalog.json", `{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.cue"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
