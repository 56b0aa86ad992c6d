package cart

import (
	"io"
	"log/slog"

	"github.com/roach88/emporium/internal/catalog"
)

// ProductSource resolves product IDs. *catalog.Catalog satisfies it.
type ProductSource interface {
	Find(id int64) (catalog.Product, bool)
}

// ImageResolver returns the current image for a product, if any.
// *imagestore.Store satisfies it.
type ImageResolver interface {
	Get(productID int64) (string, bool)
}

// Line is one product held in the cart.
type Line struct {
	ProductID   int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Image       string `json:"image,omitempty"`
	Quantity    int    `json:"quantity"`
}

// Summary is a point-in-time view of the cart.
type Summary struct {
	Lines      []Line `json:"lines"`
	TotalItems int    `json:"total_items"`
	LineCount  int    `json:"line_count"`
}

// Empty reports whether the summary has no lines.
func (s Summary) Empty() bool { return s.LineCount == 0 }

// OrderItem is the reduced line shape attached to an order record.
type OrderItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Category string `json:"category"`
}

// Cart holds line items in first-added order.
type Cart struct {
	products ProductSource
	images   ImageResolver
	lines    []*Line
	dirty    bool
	logger   *slog.Logger
}

// Option configures a Cart.
type Option func(*Cart)

// WithImages sets the resolver consulted for line images in Summary.
func WithImages(r ImageResolver) Option {
	return func(c *Cart) { c.images = r }
}

// WithLogger sets the cart logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cart) { c.logger = l }
}

// New creates an empty cart backed by products.
func New(products ProductSource, opts ...Option) *Cart {
	c := &Cart{
		products: products,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddItem adds delta units of productID. An existing line is incremented;
// otherwise a new line is created from the product's current display
// fields. Returns the resulting line.
func (c *Cart) AddItem(productID int64, delta int) (Line, error) {
	if delta <= 0 {
		return Line{}, InvalidQuantityError(productID, delta)
	}
	p, ok := c.products.Find(productID)
	if !ok {
		return Line{}, UnknownProductError(productID)
	}

	if l := c.find(productID); l != nil {
		l.Quantity += delta
		c.touch("cart item incremented", productID, l.Quantity)
		return *l, nil
	}

	l := &Line{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Image:       p.Image,
		Quantity:    delta,
	}
	c.lines = append(c.lines, l)
	c.touch("cart item added", productID, l.Quantity)
	return *l, nil
}

// SetQuantity sets the quantity of productID. A quantity of zero or below
// removes the line. Setting a positive quantity on a product not yet in
// the cart adds it. The boolean reports whether a line exists afterwards.
func (c *Cart) SetQuantity(productID int64, quantity int) (Line, bool, error) {
	if _, ok := c.products.Find(productID); !ok {
		return Line{}, false, UnknownProductError(productID)
	}
	if quantity <= 0 {
		c.RemoveItem(productID)
		return Line{}, false, nil
	}
	l := c.find(productID)
	if l == nil {
		added, err := c.AddItem(productID, quantity)
		return added, err == nil, err
	}
	l.Quantity = quantity
	c.touch("cart quantity set", productID, quantity)
	return *l, true, nil
}

// ChangeQuantity adjusts the quantity of productID by delta. A result of
// zero or below removes the line. The boolean reports whether a line
// exists afterwards.
func (c *Cart) ChangeQuantity(productID int64, delta int) (Line, bool, error) {
	current := 0
	if l := c.find(productID); l != nil {
		current = l.Quantity
	}
	return c.SetQuantity(productID, current+delta)
}

// RemoveItem deletes the line for productID. Absent lines are a no-op.
func (c *Cart) RemoveItem(productID int64) {
	for i, l := range c.lines {
		if l.ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			c.touch("cart item removed", productID, 0)
			return
		}
	}
}

// Clear removes every line.
func (c *Cart) Clear() {
	c.lines = nil
	c.dirty = true
	c.logger.Debug("cart cleared")
}

// Line returns the line for productID.
func (c *Cart) Line(productID int64) (Line, bool) {
	if l := c.find(productID); l != nil {
		return c.resolve(*l), true
	}
	return Line{}, false
}

// Quantity returns the quantity of productID, zero when absent.
func (c *Cart) Quantity(productID int64) int {
	if l := c.find(productID); l != nil {
		return l.Quantity
	}
	return 0
}

// Summary returns the lines with totals computed from them.
func (c *Cart) Summary() Summary {
	s := Summary{
		Lines:     make([]Line, 0, len(c.lines)),
		LineCount: len(c.lines),
	}
	for _, l := range c.lines {
		s.Lines = append(s.Lines, c.resolve(*l))
		s.TotalItems += l.Quantity
	}
	return s
}

// Validate checks the cart is ready for checkout.
func (c *Cart) Validate() error {
	if len(c.lines) == 0 {
		return EmptyCartError()
	}
	for _, l := range c.lines {
		if l.Quantity <= 0 {
			return InvalidQuantityError(l.ProductID, l.Quantity)
		}
	}
	return nil
}

// ExportForOrder returns the lines in order-record shape.
func (c *Cart) ExportForOrder() []OrderItem {
	items := make([]OrderItem, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, OrderItem{
			ID:       l.ProductID,
			Name:     l.Name,
			Quantity: l.Quantity,
			Category: l.Category,
		})
	}
	return items
}

// Dirty reports whether the cart changed since the last MarkClean.
func (c *Cart) Dirty() bool { return c.dirty }

// MarkClean clears the dirty flag after the view has been redrawn.
func (c *Cart) MarkClean() { c.dirty = false }

// Snapshot returns the raw lines for persistence. Images are the add-time
// snapshots, not resolved values.
func (c *Cart) Snapshot() []Line {
	out := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, *l)
	}
	return out
}

// Restore replaces the cart contents with lines. Entries with a quantity
// below one or a product missing from the catalog are dropped, and
// duplicate product IDs are merged into the first occurrence. Returns the
// number of lines held afterwards.
func (c *Cart) Restore(lines []Line) int {
	c.lines = nil
	for _, in := range lines {
		if in.Quantity <= 0 {
			c.logger.Debug("restore: dropping non-positive line", "product_id", in.ProductID, "quantity", in.Quantity)
			continue
		}
		if _, ok := c.products.Find(in.ProductID); !ok {
			c.logger.Warn("restore: dropping unknown product", "product_id", in.ProductID)
			continue
		}
		if l := c.find(in.ProductID); l != nil {
			l.Quantity += in.Quantity
			continue
		}
		l := in
		c.lines = append(c.lines, &l)
	}
	c.dirty = true
	c.logger.Debug("cart restored", "lines", len(c.lines))
	return len(c.lines)
}

func (c *Cart) find(productID int64) *Line {
	for _, l := range c.lines {
		if l.ProductID == productID {
			return l
		}
	}
	return nil
}

func (c *Cart) resolve(l Line) Line {
	if c.images != nil {
		if img, ok := c.images.Get(l.ProductID); ok {
			l.Image = img
		}
	}
	return l
}

func (c *Cart) touch(msg string, productID int64, quantity int) {
	c.dirty = true
	c.logger.Debug(msg, "product_id", productID, "quantity", quantity, "lines", len(c.lines))
}
