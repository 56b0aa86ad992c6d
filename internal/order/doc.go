// Package order turns a cart and customer-supplied fields into a WhatsApp
// order inquiry.
//
// The pieces are pure functions over their inputs and the current time:
//
//   - ValidateForm and ValidateOrder list every violated rule at once
//   - ComposeMessage renders the inquiry text
//   - BuildDeepLink wraps the text in a wa.me link
//   - EstimatePreparation and PickupRecommendation derive timings
//   - NewRecord snapshots the order for the local history
//
// Composer strings them together for a checkout: validate, compose, link,
// record, then clear the cart. Forwarding a record to a back office or
// notifying staff are optional capabilities injected at construction;
// both default to no-ops.
//
// Nothing here sends anything. Opening the link is the caller's business.
package order
