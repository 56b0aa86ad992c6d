package order

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/roach88/emporium/internal/cart"
	"github.com/roach88/emporium/internal/clock"
)

// Uploader forwards a composed order to a back-office system.
type Uploader interface {
	Upload(ctx context.Context, export AdminExport) error
}

// Notifier is told about every completed submission.
type Notifier interface {
	Notify(ctx context.Context, sub Submission) error
}

// NopUploader discards uploads.
type NopUploader struct{}

// Upload does nothing.
func (NopUploader) Upload(context.Context, AdminExport) error { return nil }

// NopNotifier discards notifications.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(context.Context, Submission) error { return nil }

// Submission is the outcome of a successful checkout.
type Submission struct {
	Record  Record         `json:"record"`
	Message string         `json:"message"`
	Link    string         `json:"link"`
	Pickup  Recommendation `json:"pickup"`
}

// Composer runs the checkout flow.
type Composer struct {
	history     *History
	uploader    Uploader
	notifier    Notifier
	clock       clock.Clock
	rand        Rand
	location    *time.Location
	storeNumber string
	countryCode string
	logger      *slog.Logger
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithHistory records every submission in h.
func WithHistory(h *History) ComposerOption {
	return func(c *Composer) { c.history = h }
}

// WithUploader sets the back-office capability.
func WithUploader(u Uploader) ComposerOption {
	return func(c *Composer) { c.uploader = u }
}

// WithNotifier sets the notification capability.
func WithNotifier(n Notifier) ComposerOption {
	return func(c *Composer) { c.notifier = n }
}

// WithClock sets the clock used for order time and IDs.
func WithClock(clk clock.Clock) ComposerOption {
	return func(c *Composer) { c.clock = clk }
}

// WithRand sets the source of order ID randomness.
func WithRand(r Rand) ComposerOption {
	return func(c *Composer) { c.rand = r }
}

// WithLocation sets the zone the order time is shown in.
func WithLocation(loc *time.Location) ComposerOption {
	return func(c *Composer) { c.location = loc }
}

// WithStoreNumber sets the WhatsApp number the link targets. Without one
// the link lets the customer pick the recipient.
func WithStoreNumber(number string) ComposerOption {
	return func(c *Composer) { c.storeNumber = number }
}

// WithCountryCode overrides DefaultCountryCode.
func WithCountryCode(code string) ComposerOption {
	return func(c *Composer) { c.countryCode = code }
}

// WithComposerLogger sets the logger.
func WithComposerLogger(l *slog.Logger) ComposerOption {
	return func(c *Composer) { c.logger = l }
}

// NewComposer creates a Composer with no-op capabilities.
func NewComposer(opts ...ComposerOption) *Composer {
	c := &Composer{
		uploader:    NopUploader{},
		notifier:    NopNotifier{},
		location:    time.Local,
		countryCode: DefaultCountryCode,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.clock = clock.Or(c.clock)
	if c.rand == nil {
		c.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return c
}

// Preview validates and composes without recording or clearing.
func (c *Composer) Preview(ct *cart.Cart, f Fields) (Submission, error) {
	if problems := ValidateOrder(f, ct.Summary()); len(problems) > 0 {
		return Submission{}, &ValidationError{Problems: problems}
	}
	if err := ct.Validate(); err != nil {
		return Submission{}, err
	}

	now := c.clock.Now().In(c.location)
	summary := ct.Summary()
	msg := ComposeMessage(summary, f, now)
	return Submission{
		Record:  NewRecord(f, ct, now, c.rand),
		Message: msg,
		Link:    BuildDeepLinkFor(c.countryCode, c.storeNumber, msg),
		Pickup:  PickupRecommendation(f.Priority, summary.TotalItems, now),
	}, nil
}

// Submit validates the cart and fields, composes the message and link,
// records the order, and clears the cart. Validation failures return a
// *ValidationError listing every problem, and leave the cart untouched.
//
// History, upload, and notification failures are logged; the order link
// is still returned.
func (c *Composer) Submit(ctx context.Context, ct *cart.Cart, f Fields) (Submission, error) {
	sub, err := c.Preview(ct, f)
	if err != nil {
		return Submission{}, err
	}

	if c.history != nil {
		if err := c.history.Append(ctx, sub.Record); err != nil {
			c.logger.Warn("could not save order to history", "id", sub.Record.ID, "error", err)
		}
	}
	if err := c.uploader.Upload(ctx, ExportForAdmin(sub.Record)); err != nil {
		c.logger.Warn("order upload failed", "id", sub.Record.ID, "error", err)
	}
	if err := c.notifier.Notify(ctx, sub); err != nil {
		c.logger.Warn("order notification failed", "id", sub.Record.ID, "error", err)
	}

	ct.Clear()
	c.logger.Info("order submitted",
		"id", sub.Record.ID,
		"priority", f.Priority,
		"items", sub.Record.Summary.TotalItems,
	)
	return sub, nil
}
