package order

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/roach88/emporium/internal/cart"
)

// Priority tiers.
const (
	PriorityStandard = "standard"
	PriorityUrgent   = "urgent"
	PriorityExpress  = "express"
)

// Fields are the customer-supplied order form values.
type Fields struct {
	CustomerName     string `json:"name" yaml:"name"`
	CustomerPhone    string `json:"phone" yaml:"phone"`
	PickupLocation   string `json:"pickupLocation" yaml:"pickup_location"`
	CollectionMethod string `json:"collectionMethod" yaml:"collection_method"`
	PreferredTime    string `json:"preferredTime" yaml:"preferred_time"`
	Priority         string `json:"priority" yaml:"priority"`
	SpecialRequests  string `json:"specialRequests" yaml:"special_requests"`
}

// Validation messages, one per rule.
const (
	MsgNameRequired       = "Customer name is required"
	MsgPhoneRequired      = "WhatsApp number is required"
	MsgLocationRequired   = "Pickup location is required"
	MsgCollectionRequired = "Collection method is required"
	MsgTimeRequired       = "Preferred pickup time is required"
	MsgPriorityRequired   = "Order priority is required"
	MsgPhoneMalformed     = "Please enter a valid WhatsApp number (e.g., +673 1234567)"
	MsgCartEmpty          = "Your cart is empty. Please add items before submitting order."
)

// phonePattern matches Brunei numbers once whitespace is removed.
var phonePattern = regexp.MustCompile(`^(\+673)?[\s-]?[2-8]\d{6}$`)

// ValidPhone reports whether phone is a Brunei mobile or landline number.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(stripSpace(phone))
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// ValidateForm returns one message per violated form rule, in form order.
// An empty slice means the form is complete.
func ValidateForm(f Fields) []string {
	problems := []string{}
	if strings.TrimSpace(f.CustomerName) == "" {
		problems = append(problems, MsgNameRequired)
	}
	if strings.TrimSpace(f.CustomerPhone) == "" {
		problems = append(problems, MsgPhoneRequired)
	}
	if f.PickupLocation == "" {
		problems = append(problems, MsgLocationRequired)
	}
	if f.CollectionMethod == "" {
		problems = append(problems, MsgCollectionRequired)
	}
	if f.PreferredTime == "" {
		problems = append(problems, MsgTimeRequired)
	}
	if f.Priority == "" {
		problems = append(problems, MsgPriorityRequired)
	}
	if f.CustomerPhone != "" && !ValidPhone(f.CustomerPhone) {
		problems = append(problems, MsgPhoneMalformed)
	}
	return problems
}

// ValidateOrder extends ValidateForm with the checkout-time cart check.
func ValidateOrder(f Fields, s cart.Summary) []string {
	problems := ValidateForm(f)
	if s.Empty() {
		problems = append(problems, MsgCartEmpty)
	}
	return problems
}

// ValidationError carries every problem found in a submission.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "order has problems: " + strings.Join(e.Problems, "; ")
}

// MalformedPhone reports whether the phone pattern check failed.
func (e *ValidationError) MalformedPhone() bool {
	for _, p := range e.Problems {
		if p == MsgPhoneMalformed {
			return true
		}
	}
	return false
}

// IsMalformedPhoneNumber returns true if err is a ValidationError that
// includes the phone pattern failure.
func IsMalformedPhoneNumber(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.MalformedPhone()
}
