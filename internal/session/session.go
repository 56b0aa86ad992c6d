package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/emporium/internal/cart"
	"github.com/roach88/emporium/internal/catalog"
	"github.com/roach88/emporium/internal/clock"
	"github.com/roach88/emporium/internal/imagestore"
	"github.com/roach88/emporium/internal/order"
	"github.com/roach88/emporium/internal/tabsync"
)

// Action is the control a product card shows.
type Action string

const (
	ActionAdd      Action = "add"
	ActionQuantity Action = "quantity"
)

// ImageSource records where a view's image came from.
type ImageSource string

const (
	SourceStore       ImageSource = "store"
	SourceCatalog     ImageSource = "catalog"
	SourcePlaceholder ImageSource = "placeholder"
)

// ErrNoCatalog is returned by Open when Options.Catalog is nil.
var ErrNoCatalog = errors.New("session: catalog is required")

// View is the display state of one product card.
type View struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Image       string      `json:"image"`
	ImageSource ImageSource `json:"image_source"`
	Quantity    int         `json:"quantity"`
	Action      Action      `json:"action"`
}

// Options configures Open.
type Options struct {
	Catalog *catalog.Catalog

	// Opener is the cross-tab transport. Nil leaves sync Disabled.
	Opener  tabsync.Opener
	Channel string
	Origin  string

	// KV enables cart persistence and order history. Nil keeps both in
	// memory only (no history).
	KV        cart.KV
	Namespace string

	// SyncOnOpen broadcasts a sync request once the channel is listening.
	SyncOnOpen bool

	Clock    clock.Clock
	Logger   *slog.Logger
	Composer []order.ComposerOption
}

// Session is one page session.
type Session struct {
	Catalog  *catalog.Catalog
	Cart     *cart.Cart
	Images   *imagestore.Store
	Sync     *tabsync.Sync
	Composer *order.Composer
	History  *order.History

	persister *cart.Persister
	logger    *slog.Logger
}

// Open builds a session. The image store is seeded from catalog images,
// a saved cart is restored when KV is set, and the sync channel is opened.
// Transport failures do not fail Open; check Sync.State.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Catalog == nil {
		return nil, ErrNoCatalog
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Session{
		Catalog: opts.Catalog,
		Images:  imagestore.New(imagestore.WithLogger(logger)),
		logger:  logger,
	}
	s.Images.Init(Seeds(opts.Catalog))
	s.Cart = cart.New(opts.Catalog, cart.WithImages(s.Images), cart.WithLogger(logger))

	composerOpts := []order.ComposerOption{order.WithComposerLogger(logger)}
	if opts.Clock != nil {
		composerOpts = append(composerOpts, order.WithClock(opts.Clock))
	}
	if opts.KV != nil {
		s.persister = cart.NewPersister(opts.KV, opts.Namespace)
		n, err := s.persister.Load(ctx, s.Cart)
		if err != nil {
			// A corrupt snapshot is dropped rather than blocking the page.
			logger.Warn("discarding saved cart", "error", err)
			if err := s.persister.Discard(ctx); err != nil {
				return nil, fmt.Errorf("open session: %w", err)
			}
		} else if n > 0 {
			logger.Debug("cart restored", "lines", n)
		}
		s.Cart.MarkClean()

		s.History = order.NewHistory(opts.KV, opts.Namespace, logger)
		composerOpts = append(composerOpts, order.WithHistory(s.History))
	}
	s.Composer = order.NewComposer(append(composerOpts, opts.Composer...)...)

	syncOpts := []tabsync.Option{tabsync.WithLogger(logger)}
	if opts.Opener != nil {
		syncOpts = append(syncOpts, tabsync.WithOpener(opts.Opener))
	}
	if opts.Channel != "" {
		syncOpts = append(syncOpts, tabsync.WithChannelName(opts.Channel))
	}
	if opts.Origin != "" {
		syncOpts = append(syncOpts, tabsync.WithOrigin(opts.Origin))
	}
	if opts.Clock != nil {
		syncOpts = append(syncOpts, tabsync.WithClock(opts.Clock))
	}
	s.Sync = tabsync.New(s.Images, syncOpts...)
	if s.Sync.Init(ctx) == tabsync.Listening && opts.SyncOnOpen {
		s.Sync.RequestSync(ctx)
	}
	return s, nil
}

// Seeds returns one image seed per catalog product that carries an image.
func Seeds(c *catalog.Catalog) []imagestore.Seed {
	var seeds []imagestore.Seed
	for _, p := range c.Products() {
		if p.Image != "" {
			seeds = append(seeds, imagestore.Seed{ProductID: p.ID, Image: p.Image})
		}
	}
	return seeds
}

// ProductView returns the card state for a product.
func (s *Session) ProductView(id int64) (View, bool) {
	p, ok := s.Catalog.Find(id)
	if !ok {
		return View{}, false
	}
	v := View{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Action:      ActionAdd,
	}

	switch img, ok := s.Images.Get(id); {
	case ok && img != "":
		v.Image, v.ImageSource = img, SourceStore
	case p.Image != "":
		v.Image, v.ImageSource = p.Image, SourceCatalog
	default:
		v.Image, v.ImageSource = catalog.Placeholder(p.Category), SourcePlaceholder
	}

	if q := s.Cart.Quantity(id); q > 0 {
		v.Quantity, v.Action = q, ActionQuantity
	}
	return v, true
}

// Views returns ProductView for every product matching the category and
// search term, in catalog order.
func (s *Session) Views(category, term string) []View {
	products := s.Catalog.Search(category, term)
	out := make([]View, 0, len(products))
	for _, p := range products {
		if v, ok := s.ProductView(p.ID); ok {
			out = append(out, v)
		}
	}
	return out
}

// WatchImages calls fn with the refreshed view of every product whose
// image changes, local or remote. The returned func stops watching.
func (s *Session) WatchImages(fn func(View)) (stop func()) {
	sub := s.Images.Subscribe(func(ev imagestore.Event) {
		if v, ok := s.ProductView(ev.ProductID); ok {
			fn(v)
		}
	})
	return func() { s.Images.Unsubscribe(sub) }
}

// Submit checks out the cart. On success the cleared cart is saved.
func (s *Session) Submit(ctx context.Context, f order.Fields) (order.Submission, error) {
	sub, err := s.Composer.Submit(ctx, s.Cart, f)
	if err != nil {
		return order.Submission{}, err
	}
	if err := s.SaveCart(ctx); err != nil {
		s.logger.Warn("could not save cart", "error", err)
	}
	return sub, nil
}

// SaveCart persists the cart if it changed since the last save. Without a
// KV it only clears the dirty flag.
func (s *Session) SaveCart(ctx context.Context) error {
	if !s.Cart.Dirty() {
		return nil
	}
	if s.persister != nil {
		if err := s.persister.Save(ctx, s.Cart); err != nil {
			return err
		}
	}
	s.Cart.MarkClean()
	return nil
}

// Run applies remote image events until ctx ends or the session closes.
func (s *Session) Run(ctx context.Context) error {
	return s.Sync.Run(ctx)
}

// Close saves the cart and closes the sync channel.
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if err := s.SaveCart(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.Sync.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
