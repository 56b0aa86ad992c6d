// Package cart implements the storefront cart engine.
//
// A Cart is an ordered collection of lines, one per product, in
// first-added order. It is the sole mutation surface for line items:
//
//   - AddItem creates a line or increments an existing one
//   - SetQuantity and ChangeQuantity update in place, and remove the line
//     when the result is zero or below
//   - RemoveItem is idempotent
//   - Clear empties the cart unconditionally
//
// No line is ever held with a quantity below one. Totals are recomputed
// from the lines on every Summary call and are never stored.
//
// # Product Snapshots
//
// A line captures the product's display fields when it is first added.
// The image reference is resolved lazily: Summary consults the optional
// ImageResolver (normally the shared image store) and falls back to the
// snapshot taken at add time.
//
// # Errors
//
// Mutations that reference a product missing from the catalog return an
// *Error with code UNKNOWN_PRODUCT. Validate reports EMPTY_CART and
// INVALID_QUANTITY at checkout time. An empty cart is otherwise a normal
// state and no other operation fails because of it.
//
// # Persistence
//
// Persister saves a snapshot of the lines to the local key-value store and
// restores it on the next session. Persistence is optional; a Cart works
// without it.
//
// A Cart is owned by one page session and is not safe for concurrent use.
package cart
