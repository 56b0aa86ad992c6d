package imagestore

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietStore() *Store {
	return New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestSetGetRoundTrip(t *testing.T) {
	s := quietStore()

	_, ok := s.Get(7)
	assert.False(t, ok)
	assert.False(t, s.Has(7))

	assert.True(t, s.Set(7, "data:image/png;base64,AAAA"))
	got, ok := s.Get(7)
	require.True(t, ok)
	assert.Equal(t, "data:image/png;base64,AAAA", got)
	assert.True(t, s.Has(7))
	assert.Equal(t, 1, s.Len())
}

func TestSetOverwrites(t *testing.T) {
	s := quietStore()
	s.Set(1, "a")
	s.Set(1, "b")

	got, _ := s.Get(1)
	assert.Equal(t, "b", got)
	assert.Equal(t, 1, s.Len())
}

func TestDelete(t *testing.T) {
	s := quietStore()
	s.Set(3, "x")

	assert.True(t, s.Delete(3))
	assert.False(t, s.Has(3))
	assert.False(t, s.Delete(3), "second delete finds nothing")
}

func TestInitDoesNotOverwrite(t *testing.T) {
	s := quietStore()
	s.Set(1, "uploaded")

	added := s.Init([]Seed{
		{ProductID: 1, Image: "assets/images/products/bread.jpg"},
		{ProductID: 2, Image: "assets/images/products/milk.jpg"},
		{ProductID: 3, Image: ""},
	})
	assert.Equal(t, 1, added)

	got, _ := s.Get(1)
	assert.Equal(t, "uploaded", got)
	got, _ = s.Get(2)
	assert.Equal(t, "assets/images/products/milk.jpg", got)
	assert.False(t, s.Has(3), "empty seed skipped")
}

func TestInitDoesNotNotify(t *testing.T) {
	s := quietStore()
	calls := 0
	s.Subscribe(func(Event) { calls++ })

	s.Init([]Seed{{ProductID: 1, Image: "a.jpg"}})
	assert.Zero(t, calls)
}

func TestListenersFireInRegistrationOrder(t *testing.T) {
	s := quietStore()
	var order []string
	s.Subscribe(func(Event) { order = append(order, "first") })
	s.Subscribe(func(Event) { order = append(order, "second") })
	s.Subscribe(func(Event) { order = append(order, "third") })

	s.Set(1, "a")
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestEventCarriesOldAndNew(t *testing.T) {
	s := quietStore()
	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	s.Set(5, "one")
	s.Set(5, "two")
	s.Delete(5)

	require.Len(t, events, 3)
	assert.Equal(t, Event{Kind: ImageUpdated, ProductID: 5, Payload: "one"}, events[0])
	assert.Equal(t, Event{Kind: ImageUpdated, ProductID: 5, Payload: "two", OldPayload: "one", HadOld: true}, events[1])
	assert.Equal(t, Event{Kind: ImageDeleted, ProductID: 5, OldPayload: "two", HadOld: true}, events[2])
}

func TestDeleteMissingDoesNotNotify(t *testing.T) {
	s := quietStore()
	calls := 0
	s.Subscribe(func(Event) { calls++ })

	s.Delete(99)
	assert.Zero(t, calls)
}

func TestListenerSeesAppliedState(t *testing.T) {
	s := quietStore()
	var seen string
	var present bool
	s.Subscribe(func(ev Event) { seen, present = s.Get(ev.ProductID) })

	s.Set(4, "fresh")
	assert.True(t, present)
	assert.Equal(t, "fresh", seen)

	s.Delete(4)
	assert.False(t, present)
}

func TestPanickingListenerIsIsolated(t *testing.T) {
	var buf bytes.Buffer
	s := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	var after []int64
	s.Subscribe(func(Event) { panic("render failed") })
	s.Subscribe(func(ev Event) { after = append(after, ev.ProductID) })

	assert.NotPanics(t, func() { s.Set(8, "img") })
	assert.Equal(t, []int64{8}, after)
	got, _ := s.Get(8)
	assert.Equal(t, "img", got)
	assert.Contains(t, buf.String(), "image listener panicked")
	assert.Contains(t, buf.String(), "render failed")
}

func TestUnsubscribe(t *testing.T) {
	s := quietStore()
	var a, b int
	subA := s.Subscribe(func(Event) { a++ })
	s.Subscribe(func(Event) { b++ })
	assert.Equal(t, 2, s.ListenerCount())

	assert.True(t, s.Unsubscribe(subA))
	assert.False(t, s.Unsubscribe(subA), "already removed")
	assert.False(t, s.Unsubscribe(Subscription{}), "zero handle")

	s.Set(1, "x")
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, 1, s.ListenerCount())
}

func TestSubscribeNilIgnored(t *testing.T) {
	s := quietStore()
	sub := s.Subscribe(nil)
	assert.Equal(t, Subscription{}, sub)
	assert.Zero(t, s.ListenerCount())
}

func TestSubscribeSameFunctionTwice(t *testing.T) {
	s := quietStore()
	calls := 0
	fn := func(Event) { calls++ }
	first := s.Subscribe(fn)
	s.Subscribe(fn)

	s.Set(1, "x")
	assert.Equal(t, 2, calls)

	s.Unsubscribe(first)
	s.Set(1, "y")
	assert.Equal(t, 3, calls)
}

func TestAllReturnsCopy(t *testing.T) {
	s := quietStore()
	s.Set(1, "a")

	all := s.All()
	all[2] = "b"
	assert.False(t, s.Has(2))
}

func TestStats(t *testing.T) {
	s := quietStore()
	s.Set(2, "bb")
	s.Set(1, "a")
	s.Subscribe(func(Event) {})

	st := s.Stats()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 3, st.Bytes)
	assert.Equal(t, 1, st.Listeners)
	require.Len(t, st.Entries, 2)
	assert.Equal(t, int64(1), st.Entries[0].ProductID)
	assert.Equal(t, int64(2), st.Entries[1].ProductID)
	assert.Len(t, st.Entries[0].Digest, 64)
	assert.NotEqual(t, st.Entries[0].Digest, st.Entries[1].Digest)
	assert.Equal(t, map[int64]string{1: "a", 2: "bb"}, st.Images)
}

func TestStatsDigestStable(t *testing.T) {
	a, b := quietStore(), quietStore()
	a.Set(1, "same payload")
	b.Set(1, "same payload")
	assert.Equal(t, a.Stats().Entries[0].Digest, b.Stats().Entries[0].Digest)
}

func TestSyncTo(t *testing.T) {
	s := quietStore()
	s.Set(1, "uploaded")

	targets := []Seed{
		{ProductID: 1, Image: "static.jpg"},
		{ProductID: 2, Image: "other.jpg"},
	}
	assert.Equal(t, 1, s.SyncTo(targets))
	assert.Equal(t, "uploaded", targets[0].Image)
	assert.Equal(t, "other.jpg", targets[1].Image)
}

func TestConcurrentMutations(t *testing.T) {
	s := quietStore()
	var mu sync.Mutex
	events := 0
	s.Subscribe(func(Event) {
		mu.Lock()
		events++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := int64(0); i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.Set(id, "x")
			_ = s.Has(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, s.Len())
	assert.Equal(t, 20, events)
}

func TestListenerMayMutateStore(t *testing.T) {
	s := quietStore()
	var order []string
	s.Subscribe(func(ev Event) {
		order = append(order, fmt.Sprintf("%s:%d", ev.Kind, ev.ProductID))
		if ev.ProductID == 1 && ev.Kind == ImageUpdated {
			assert.True(t, s.Set(2, "mirror"))
			assert.True(t, s.Delete(3))
		}
	})
	s.Set(3, "stale")
	order = nil

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Set(1, "x")
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Set from inside a listener blocked")
	}

	got, ok := s.Get(2)
	require.True(t, ok)
	assert.Equal(t, "mirror", got)
	assert.False(t, s.Has(3))
	assert.Equal(t, []string{"image-updated:1", "image-updated:2", "image-deleted:3"}, order)
}

func TestSetRejectsEmptyPayload(t *testing.T) {
	s := quietStore()
	s.Set(7, "old")
	events := 0
	s.Subscribe(func(Event) { events++ })

	assert.False(t, s.Set(7, ""))
	assert.False(t, s.Set(8, ""))

	got, _ := s.Get(7)
	assert.Equal(t, "old", got)
	assert.False(t, s.Has(8))
	assert.Zero(t, events)
}
