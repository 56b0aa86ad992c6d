// Package catalog is the product catalog provider.
//
// A Catalog is an immutable, ordered list of products with unique IDs plus
// the store metadata the order form needs: categories, pickup locations,
// time slots, and priority tiers. The cart snapshots display fields from
// it at add-time; the image store seeds from its image references.
//
// Catalog files are CUE or YAML. CUE files are unified with an embedded
// schema before decoding, so constraint violations (a missing name, a
// non-positive ID) are reported with file positions. YAML files are
// decoded strictly: unknown fields are errors. Both paths end in New,
// which rejects duplicate product IDs.
//
// Default returns the built-in First Emporium catalog.
package catalog
