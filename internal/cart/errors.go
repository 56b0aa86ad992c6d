package cart

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes cart errors.
type ErrorCode string

const (
	// ErrCodeUnknownProduct indicates a mutation referenced a product that
	// is not in the catalog.
	ErrCodeUnknownProduct ErrorCode = "UNKNOWN_PRODUCT"

	// ErrCodeEmptyCart indicates checkout was attempted with no lines.
	ErrCodeEmptyCart ErrorCode = "EMPTY_CART"

	// ErrCodeInvalidQuantity indicates a non-positive quantity where a
	// positive one is required.
	ErrCodeInvalidQuantity ErrorCode = "INVALID_QUANTITY"
)

// Error is a cart error with structured fields for the caller.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// ProductID identifies the affected product, zero for EMPTY_CART.
	ProductID int64

	// Quantity is the offending quantity for INVALID_QUANTITY.
	Quantity int

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ProductID != 0 {
		return fmt.Sprintf("%s: %s (product=%d)", e.Code, e.Message, e.ProductID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UnknownProductError creates an UNKNOWN_PRODUCT error.
func UnknownProductError(productID int64) *Error {
	return &Error{
		Code:      ErrCodeUnknownProduct,
		ProductID: productID,
		Message:   "product not found in catalog",
	}
}

// EmptyCartError creates an EMPTY_CART error.
func EmptyCartError() *Error {
	return &Error{
		Code:    ErrCodeEmptyCart,
		Message: "Your cart is empty. Please add items before submitting order.",
	}
}

// InvalidQuantityError creates an INVALID_QUANTITY error.
func InvalidQuantityError(productID int64, quantity int) *Error {
	return &Error{
		Code:      ErrCodeInvalidQuantity,
		ProductID: productID,
		Quantity:  quantity,
		Message:   fmt.Sprintf("quantity must be at least 1, got %d", quantity),
	}
}

// IsUnknownProduct returns true if err is an UNKNOWN_PRODUCT error.
// Uses errors.As to handle wrapped errors.
func IsUnknownProduct(err error) bool {
	return hasCode(err, ErrCodeUnknownProduct)
}

// IsEmptyCart returns true if err is an EMPTY_CART error.
func IsEmptyCart(err error) bool {
	return hasCode(err, ErrCodeEmptyCart)
}

// IsInvalidQuantity returns true if err is an INVALID_QUANTITY error.
func IsInvalidQuantity(err error) bool {
	return hasCode(err, ErrCodeInvalidQuantity)
}

func hasCode(err error, code ErrorCode) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
