package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// AllCategories is the pseudo-category that matches every product.
const AllCategories = "all"

// Product is one catalog entry. ID is the stable identifier shared by the
// cart and the image store.
type Product struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Category    string `json:"category" yaml:"category"`
	Image       string `json:"image,omitempty" yaml:"image,omitempty"`
}

// Category is a product grouping shown as a filter.
type Category struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Icon string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Location is a pickup branch.
type Location struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}

// Priority is an order urgency tier.
type Priority struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// TimeSlots groups pickup windows by part of day.
type TimeSlots struct {
	Morning   []string `json:"morning" yaml:"morning"`
	Afternoon []string `json:"afternoon" yaml:"afternoon"`
	Evening   []string `json:"evening" yaml:"evening"`
}

// All returns every slot in day order.
func (s TimeSlots) All() []string {
	all := make([]string, 0, len(s.Morning)+len(s.Afternoon)+len(s.Evening))
	all = append(all, s.Morning...)
	all = append(all, s.Afternoon...)
	return append(all, s.Evening...)
}

// DuplicateProductError reports a second product carrying an ID that is
// already in the catalog.
type DuplicateProductError struct {
	ID    int64
	First string
	Again string
}

func (e *DuplicateProductError) Error() string {
	return fmt.Sprintf("duplicate product id %d (%q and %q)", e.ID, e.First, e.Again)
}

// Catalog is an immutable product list indexed by ID.
type Catalog struct {
	products   []Product
	index      map[int64]int
	categories []Category
	locations  []Location
	priorities []Priority
	slots      TimeSlots
}

// Option configures store metadata on a Catalog.
type Option func(*Catalog)

// WithCategories sets the category list.
func WithCategories(c []Category) Option {
	return func(cat *Catalog) { cat.categories = append([]Category(nil), c...) }
}

// WithLocations sets the pickup locations.
func WithLocations(l []Location) Option {
	return func(cat *Catalog) { cat.locations = append([]Location(nil), l...) }
}

// WithPriorities sets the priority tiers.
func WithPriorities(p []Priority) Option {
	return func(cat *Catalog) { cat.priorities = append([]Priority(nil), p...) }
}

// WithTimeSlots sets the pickup time slots.
func WithTimeSlots(s TimeSlots) Option {
	return func(cat *Catalog) { cat.slots = s }
}

// New builds a Catalog from products in declaration order.
// Returns *DuplicateProductError if two products share an ID.
func New(products []Product, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		index:    make(map[int64]int, len(products)),
	}
	for _, p := range products {
		if i, dup := c.index[p.ID]; dup {
			return nil, &DuplicateProductError{ID: p.ID, First: c.products[i].Name, Again: p.Name}
		}
		c.index[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Find returns the product with the given ID.
func (c *Catalog) Find(id int64) (Product, bool) {
	i, ok := c.index[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Len returns the number of products.
func (c *Catalog) Len() int { return len(c.products) }

// Products returns a copy of all products in declaration order.
func (c *Catalog) Products() []Product {
	return append([]Product(nil), c.products...)
}

// Categories returns the configured categories.
func (c *Catalog) Categories() []Category { return append([]Category(nil), c.categories...) }

// Locations returns the configured pickup locations.
func (c *Catalog) Locations() []Location { return append([]Location(nil), c.locations...) }

// Priorities returns the configured priority tiers.
func (c *Catalog) Priorities() []Priority { return append([]Priority(nil), c.priorities...) }

// TimeSlots returns the configured pickup windows.
func (c *Catalog) TimeSlots() TimeSlots { return c.slots }

// Filter returns products in category. AllCategories or "" returns every
// product.
func (c *Catalog) Filter(category string) []Product {
	if category == "" || category == AllCategories {
		return c.Products()
	}
	out := []Product{}
	for _, p := range c.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Search filters by category, then keeps products whose name or
// description contains term. Matching is case-insensitive with Unicode
// case folding on NFC-normalized text. A blank term returns the category
// filter unchanged.
func (c *Catalog) Search(category, term string) []Product {
	filtered := c.Filter(category)
	needle := fold(strings.TrimSpace(term))
	if needle == "" {
		return filtered
	}

	out := []Product{}
	for _, p := range filtered {
		if strings.Contains(fold(p.Name), needle) || strings.Contains(fold(p.Description), needle) {
			out = append(out, p)
		}
	}
	return out
}

// fold normalizes s for comparison. A new Caser is created per call since
// Casers carry state and must not be shared between goroutines.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Placeholder returns the fallback image path for a category.
func Placeholder(category string) string {
	if category == "" {
		category = "default"
	}
	return "assets/images/placeholders/" + category + "-placeholder.svg"
}
