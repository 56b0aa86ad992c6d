// Package session assembles one storefront page session.
//
// A Session owns the catalog reference, the cart, the shared image store,
// the cross-tab sync, and the order composer. It is built once with Open
// and handed to whatever renders or drives the page; nothing here is
// package-level state.
//
// ProductView answers the two questions a product card needs: which image
// to show (store, then the catalog's own image, then the category
// placeholder) and whether to show an add button or a quantity selector.
package session
