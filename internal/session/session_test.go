package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/emporium/internal/broadcast"
	"github.com/roach88/emporium/internal/catalog"
	"github.com/roach88/emporium/internal/clock"
	"github.com/roach88/emporium/internal/localstore"
	"github.com/roach88/emporium/internal/order"
	"github.com/roach88/emporium/internal/tabsync"
	"github.com/roach88/emporium/internal/testutil"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Product{
		{ID: 1, Name: "Fresh Bananas", Description: "Sweet ripe bananas", Category: "fresh", Image: "assets/images/products/fresh/bananas.jpg"},
		{ID: 2, Name: "Whole Wheat Bread", Description: "Freshly baked", Category: "bakery"},
		{ID: 3, Name: "Fresh Milk", Description: "1 litre", Category: "dairy"},
	})
	require.NoError(t, err)
	return c
}

func openKV(t *testing.T) *localstore.Store {
	t.Helper()
	kv, err := localstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

var fixedNow = clock.Func(func() time.Time {
	return time.Date(2025, 3, 1, 2, 30, 0, 0, time.UTC)
})

func TestOpenRequiresCatalog(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrNoCatalog)
}

func TestOpenSeedsImagesAndDisablesSyncWithoutOpener(t *testing.T) {
	s, err := Open(context.Background(), Options{Catalog: testCatalog(t)})
	require.NoError(t, err)
	defer s.Close(context.Background())

	assert.Equal(t, 1, s.Images.Len())
	img, ok := s.Images.Get(1)
	require.True(t, ok)
	assert.Equal(t, "assets/images/products/fresh/bananas.jpg", img)
	assert.Equal(t, tabsync.Disabled, s.Sync.State())
	assert.Nil(t, s.History)
}

func TestProductViewImageFallback(t *testing.T) {
	s, err := Open(context.Background(), Options{Catalog: testCatalog(t)})
	require.NoError(t, err)
	defer s.Close(context.Background())

	v, ok := s.ProductView(1)
	require.True(t, ok)
	assert.Equal(t, SourceStore, v.ImageSource)

	s.Images.Set(1, "data:image/jpeg;base64,AAAA")
	v, _ = s.ProductView(1)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", v.Image)

	s.Images.Delete(1)
	v, _ = s.ProductView(1)
	assert.Equal(t, SourceCatalog, v.ImageSource)
	assert.Equal(t, "assets/images/products/fresh/bananas.jpg", v.Image)

	v, _ = s.ProductView(2)
	assert.Equal(t, SourcePlaceholder, v.ImageSource)
	assert.Equal(t, "assets/images/placeholders/bakery-placeholder.svg", v.Image)

	_, ok = s.ProductView(99)
	assert.False(t, ok)
}

func TestProductViewAction(t *testing.T) {
	s, err := Open(context.Background(), Options{Catalog: testCatalog(t)})
	require.NoError(t, err)
	defer s.Close(context.Background())

	v, _ := s.ProductView(3)
	assert.Equal(t, ActionAdd, v.Action)
	assert.Zero(t, v.Quantity)

	_, err = s.Cart.AddItem(3, 2)
	require.NoError(t, err)
	v, _ = s.ProductView(3)
	assert.Equal(t, ActionQuantity, v.Action)
	assert.Equal(t, 2, v.Quantity)

	s.Cart.RemoveItem(3)
	v, _ = s.ProductView(3)
	assert.Equal(t, ActionAdd, v.Action)
}

func TestViewsFiltersInCatalogOrder(t *testing.T) {
	s, err := Open(context.Background(), Options{Catalog: testCatalog(t)})
	require.NoError(t, err)
	defer s.Close(context.Background())

	views := s.Views(catalog.AllCategories, "fresh")
	require.Len(t, views, 3)
	assert.Equal(t, int64(1), views[0].ID)

	views = s.Views("dairy", "")
	require.Len(t, views, 1)
	assert.Equal(t, "Fresh Milk", views[0].Name)
}

func TestWatchImagesReportsRemoteChange(t *testing.T) {
	ctx := context.Background()
	bus := broadcast.NewMemoryBus()
	cat := testCatalog(t)

	shop, err := Open(ctx, Options{Catalog: cat, Opener: bus, Origin: "shop"})
	require.NoError(t, err)
	defer shop.Close(ctx)
	admin, err := Open(ctx, Options{Catalog: cat, Opener: bus, Origin: "admin"})
	require.NoError(t, err)
	defer admin.Close(ctx)

	var seen []View
	stop := shop.WatchImages(func(v View) { seen = append(seen, v) })

	admin.Sync.UpdateImage(ctx, 2, "data:image/png;base64,BBBB")
	bus.DeliverAll()
	shop.Sync.Drain(ctx)

	require.Len(t, seen, 1)
	assert.Equal(t, int64(2), seen[0].ID)
	assert.Equal(t, SourceStore, seen[0].ImageSource)

	stop()
	admin.Sync.DeleteImage(ctx, 2)
	bus.DeliverAll()
	shop.Sync.Drain(ctx)
	assert.Len(t, seen, 1)
	assert.False(t, shop.Images.Has(2))
}

func TestSyncOnOpenPullsImages(t *testing.T) {
	ctx := context.Background()
	bus := broadcast.NewMemoryBus()
	cat := testCatalog(t)

	admin, err := Open(ctx, Options{Catalog: cat, Opener: bus, Origin: "admin"})
	require.NoError(t, err)
	defer admin.Close(ctx)
	admin.Images.Set(3, "data:image/png;base64,CCCC")

	fresh, err := Open(ctx, Options{Catalog: cat, Opener: bus, Origin: "fresh", SyncOnOpen: true})
	require.NoError(t, err)
	defer fresh.Close(ctx)

	bus.DeliverAll()
	admin.Sync.Drain(ctx)
	bus.DeliverAll()
	fresh.Sync.Drain(ctx)

	img, ok := fresh.Images.Get(3)
	require.True(t, ok)
	assert.Equal(t, "data:image/png;base64,CCCC", img)
}

func TestCartPersistsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	kv := openKV(t)
	cat := testCatalog(t)

	first, err := Open(ctx, Options{Catalog: cat, KV: kv})
	require.NoError(t, err)
	_, err = first.Cart.AddItem(1, 2)
	require.NoError(t, err)
	_, err = first.Cart.AddItem(3, 1)
	require.NoError(t, err)
	require.NoError(t, first.Close(ctx))

	second, err := Open(ctx, Options{Catalog: cat, KV: kv})
	require.NoError(t, err)
	defer second.Close(ctx)

	assert.Equal(t, 3, second.Cart.Summary().TotalItems)
	assert.False(t, second.Cart.Dirty())
}

func TestCorruptSavedCartIsDiscarded(t *testing.T) {
	ctx := context.Background()
	kv := openKV(t)
	require.NoError(t, kv.Set(ctx, localstore.DefaultNamespace, "firstEmporiumCart", []byte("{not json")))

	s, err := Open(ctx, Options{Catalog: testCatalog(t), KV: kv})
	require.NoError(t, err)
	defer s.Close(ctx)

	assert.True(t, s.Cart.Summary().Empty())
	_, err = kv.Get(ctx, localstore.DefaultNamespace, "firstEmporiumCart")
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestSubmitRecordsHistoryAndSavesEmptyCart(t *testing.T) {
	ctx := context.Background()
	kv := openKV(t)
	cat := testCatalog(t)

	s, err := Open(ctx, Options{
		Catalog:  cat,
		KV:       kv,
		Clock:    fixedNow,
		Composer: []order.ComposerOption{order.WithRand(testutil.FixedRand{Value: 42}), order.WithLocation(time.UTC)},
	})
	require.NoError(t, err)
	_, err = s.Cart.AddItem(1, 2)
	require.NoError(t, err)
	require.NoError(t, s.SaveCart(ctx))

	sub, err := s.Submit(ctx, order.Fields{
		CustomerName:     "Siti Aminah",
		CustomerPhone:    "+673 7123456",
		PickupLocation:   "Batu Satu Branch",
		CollectionMethod: "Store Pickup",
		PreferredTime:    "10:00 AM - 10:30 AM",
		Priority:         order.PriorityStandard,
	})
	require.NoError(t, err)
	assert.Equal(t, "FE200000042", sub.Record.ID)

	records, err := s.History.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NoError(t, s.Close(ctx))

	again, err := Open(ctx, Options{Catalog: cat, KV: kv})
	require.NoError(t, err)
	defer again.Close(ctx)
	assert.True(t, again.Cart.Summary().Empty())
}

func TestSubmitInvalidKeepsCart(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{Catalog: testCatalog(t)})
	require.NoError(t, err)
	defer s.Close(ctx)

	_, err = s.Cart.AddItem(1, 1)
	require.NoError(t, err)
	_, err = s.Submit(ctx, order.Fields{})
	require.Error(t, err)
	assert.Equal(t, 1, s.Cart.Summary().TotalItems)
}
