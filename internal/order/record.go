package order

import (
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/emporium/internal/cart"
)

// StatusPending is the status of every freshly composed record.
const StatusPending = "pending"

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Rand supplies the random component of order IDs. *math/rand.Rand
// satisfies it.
type Rand interface {
	Intn(n int) int
}

// Customer is the customer block of a record.
type Customer struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	PickupLocation   string `json:"pickupLocation"`
	CollectionMethod string `json:"collectionMethod"`
	PreferredTime    string `json:"preferredTime"`
	Priority         string `json:"priority"`
	SpecialRequests  string `json:"specialRequests"`
}

// RecordSummary repeats the cart totals at composition time.
type RecordSummary struct {
	TotalItems int `json:"totalItems"`
	ItemCount  int `json:"itemCount"`
}

// Record is a read-only snapshot of a submitted order.
type Record struct {
	ID        string           `json:"id"`
	Timestamp string           `json:"timestamp"`
	Customer  Customer         `json:"customer"`
	Items     []cart.OrderItem `json:"items"`
	Summary   RecordSummary    `json:"summary"`
	Status    string           `json:"status"`
}

// NewID returns "FE" followed by the last six digits of the Unix
// millisecond timestamp and a zero-padded three-digit random number.
func NewID(now time.Time, r Rand) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return fmt.Sprintf("FE%s%03d", ms, r.Intn(1000))
}

// NewRecord snapshots fields and the cart contents.
func NewRecord(f Fields, c *cart.Cart, now time.Time, r Rand) Record {
	s := c.Summary()
	return Record{
		ID:        NewID(now, r),
		Timestamp: now.UTC().Format(timestampLayout),
		Customer: Customer{
			Name:             f.CustomerName,
			Phone:            f.CustomerPhone,
			PickupLocation:   f.PickupLocation,
			CollectionMethod: f.CollectionMethod,
			PreferredTime:    f.PreferredTime,
			Priority:         f.Priority,
			SpecialRequests:  f.SpecialRequests,
		},
		Items: c.ExportForOrder(),
		Summary: RecordSummary{
			TotalItems: s.TotalItems,
			ItemCount:  s.LineCount,
		},
		Status: StatusPending,
	}
}

// AdminExport is the record shape handed to a back-office system.
type AdminExport struct {
	OrderID           string           `json:"orderId"`
	Timestamp         string           `json:"timestamp"`
	Customer          Customer         `json:"customer"`
	Items             []cart.OrderItem `json:"items"`
	Summary           RecordSummary    `json:"summary"`
	EstimatedPrepTime int              `json:"estimatedPrepTime"`
	Status            string           `json:"status"`
}

// ExportForAdmin adds the estimated preparation time to r.
func ExportForAdmin(r Record) AdminExport {
	return AdminExport{
		OrderID:           r.ID,
		Timestamp:         r.Timestamp,
		Customer:          r.Customer,
		Items:             r.Items,
		Summary:           r.Summary,
		EstimatedPrepTime: EstimatePreparation(r.Customer.Priority, r.Summary.TotalItems),
		Status:            r.Status,
	}
}
