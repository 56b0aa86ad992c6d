package order

import (
	"strconv"
	"strings"
	"time"

	"github.com/roach88/emporium/internal/cart"
)

// TimeLayout formats the order time in the message.
const TimeLayout = "Mon Jan 2 2006, 3:04 PM"

// ComposeMessage renders the inquiry text. The output depends only on its
// arguments; now is formatted in its own location.
func ComposeMessage(s cart.Summary, f Fields, now time.Time) string {
	var b strings.Builder

	b.WriteString("🛒 *NEW ORDER INQUIRY* 🛒\n\n")

	b.WriteString("*Customer Details:*\n")
	b.WriteString("Name: " + f.CustomerName + "\n")
	b.WriteString("Phone: " + f.CustomerPhone + "\n")
	b.WriteString("Pickup Location: " + f.PickupLocation + "\n")
	b.WriteString("Collection Method: " + f.CollectionMethod + "\n")
	b.WriteString("Preferred Pickup Time: " + f.PreferredTime + "\n")
	b.WriteString("Order Priority: " + f.Priority + "\n")

	b.WriteString("\n*Order Items:*\n")
	for _, l := range s.Lines {
		b.WriteString("• " + l.Name + " - Qty: " + strconv.Itoa(l.Quantity) + "\n")
	}
	b.WriteString("\n*Total Items:* " + strconv.Itoa(s.TotalItems) + "\n")

	if strings.TrimSpace(f.SpecialRequests) != "" {
		b.WriteString("\n*Special Requests:*\n" + f.SpecialRequests + "\n")
	}

	b.WriteString("\n*Order Time:* " + now.Format(TimeLayout) + "\n")

	switch f.Priority {
	case PriorityUrgent:
		b.WriteString("\n🚨 *URGENT ORDER* - Customer requests 1 hour preparation time")
	case PriorityExpress:
		b.WriteString("\n⚡ *EXPRESS ORDER* - Customer requests 30 minutes preparation time")
	}

	b.WriteString("\n\n📋 Please check availability and pricing for store pickup.")
	b.WriteString("\n\n---\n*First Emporium Supermarket*\nFresh • Quality • Fast Service")
	return b.String()
}
