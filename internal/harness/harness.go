package harness

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/zeebo/blake3"

	"github.com/roach88/emporium/internal/broadcast"
	"github.com/roach88/emporium/internal/cart"
	"github.com/roach88/emporium/internal/catalog"
	"github.com/roach88/emporium/internal/clock"
	"github.com/roach88/emporium/internal/session"
	"github.com/roach88/emporium/internal/testutil"
)

// maxDeliverRounds bounds one deliver step. Each round moves every queued
// message and drains every tab; a sync request settles in two.
const maxDeliverRounds = 16

// Harness holds the tabs of one scenario run.
type Harness struct {
	bus    *broadcast.MemoryBus
	tabs   map[string]*session.Session
	order  []string
	clock  *testutil.ManualClock
	seq    *clock.Sequence
	logger *slog.Logger
}

// Run executes a scenario and returns the result. Every run gets a fresh
// bus and fresh sessions, so scenarios never share state.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with session logging sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	ctx := context.Background()

	cat, err := loadCatalog(scenario.Catalog)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		bus:    broadcast.NewMemoryBus(),
		tabs:   make(map[string]*session.Session, len(scenario.Tabs)),
		clock:  testutil.NewManualClock(testutil.Epoch),
		seq:    clock.NewSequence(),
		logger: logger,
	}
	defer h.close(ctx)

	origins := testutil.NewFixedOrigins(scenario.Tabs...)
	for _, name := range scenario.Tabs {
		s, err := session.Open(ctx, session.Options{
			Catalog: cat,
			Opener:  h.bus,
			Channel: scenario.Channel,
			Origin:  origins.Generate(),
			Clock:   h.clock,
			Logger:  logger.With("tab", name),
		})
		if err != nil {
			return nil, fmt.Errorf("open tab %q: %w", name, err)
		}
		h.tabs[name] = s
		h.order = append(h.order, name)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		ev := h.execute(ctx, step)
		result.AddTrace(ev)
		if msg := checkExpect(step, ev); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Do, msg))
		}
		h.logger.Debug("step completed", "step", i, "op", step.Do, "tab", step.Tab, "outcome", ev.Outcome)
	}

	for _, name := range h.order {
		result.State[name] = h.snapshot(name)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, h) {
		result.AddError(msg)
	}
	return result, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

func (h *Harness) close(ctx context.Context) {
	for _, name := range h.order {
		if err := h.tabs[name].Close(ctx); err != nil {
			h.logger.Warn("close tab", "tab", name, "error", err)
		}
	}
}

func (h *Harness) execute(ctx context.Context, step Step) TraceEvent {
	ev := TraceEvent{
		Seq:       h.seq.Next(),
		Tab:       step.Tab,
		Op:        step.Do,
		ProductID: step.Product,
		Quantity:  step.Quantity,
		Outcome:   OutcomeOK,
	}

	if step.Do == OpDeliver {
		ev.Delivered = h.deliver(ctx)
		if ev.Delivered == 0 {
			ev.Outcome = OutcomeNoop
		}
		return ev
	}

	s := h.tabs[step.Tab]
	var (
		line cart.Line
		err  error
	)
	switch step.Do {
	case OpAdd:
		delta := step.Quantity
		if delta == 0 {
			delta = 1
		}
		line, err = s.Cart.AddItem(step.Product, delta)
		ev.Line = lineQuantity(line, err == nil)
	case OpChange:
		var ok bool
		line, ok, err = s.Cart.ChangeQuantity(step.Product, step.Quantity)
		ev.Line = lineQuantity(line, ok)
	case OpSet:
		var ok bool
		line, ok, err = s.Cart.SetQuantity(step.Product, step.Quantity)
		ev.Line = lineQuantity(line, ok)
	case OpRemove:
		if s.Cart.Quantity(step.Product) == 0 {
			ev.Outcome = OutcomeNoop
		}
		s.Cart.RemoveItem(step.Product)
		ev.Line = lineQuantity(cart.Line{}, true)
	case OpClear:
		s.Cart.Clear()
	case OpSetImage:
		if !s.Sync.UpdateImage(ctx, step.Product, step.Image) {
			ev.Outcome = OutcomeNoop
		}
	case OpDeleteImage:
		if !s.Sync.DeleteImage(ctx, step.Product) {
			ev.Outcome = OutcomeNoop
		}
	case OpRequestSync:
		if !s.Sync.RequestSync(ctx) {
			ev.Outcome = OutcomeNoop
		}
	case OpClose:
		if err := s.Sync.Close(); err != nil {
			ev.Outcome = err.Error()
		}
	}

	if err != nil {
		ev.Outcome = errorCode(err)
		ev.Line = nil
	}
	return ev
}

// deliver pumps the bus until no tab has anything left to say.
func (h *Harness) deliver(ctx context.Context) int {
	total := 0
	for round := 0; round < maxDeliverRounds; round++ {
		n := h.bus.DeliverAll()
		drained := 0
		for _, name := range h.order {
			drained += h.tabs[name].Sync.Drain(ctx)
		}
		total += n
		if n == 0 && drained == 0 && h.bus.Pending() == 0 {
			break
		}
	}
	return total
}

func (h *Harness) snapshot(name string) TabState {
	s := h.tabs[name]
	summary := s.Cart.Summary()
	st := TabState{
		Lines:      make([]LineState, 0, len(summary.Lines)),
		TotalItems: summary.TotalItems,
		Sync:       s.Sync.Stats(),
	}
	for _, l := range summary.Lines {
		st.Lines = append(st.Lines, LineState{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	stats := s.Images.Stats()
	st.Images = stats.Total
	hasher := blake3.New()
	for _, e := range stats.Entries {
		fmt.Fprintf(hasher, "%d:%s\n", e.ProductID, e.Digest)
	}
	st.Digest = hex.EncodeToString(hasher.Sum(nil))[:16]
	return st
}

func lineQuantity(l cart.Line, present bool) *int {
	q := 0
	if present {
		q = l.Quantity
	}
	return &q
}

func errorCode(err error) string {
	var ce *cart.Error
	if errors.As(err, &ce) {
		return string(ce.Code)
	}
	return err.Error()
}

func checkExpect(step Step, ev TraceEvent) string {
	if step.Expect == nil {
		if ev.Outcome != OutcomeOK && ev.Outcome != OutcomeNoop {
			return "unexpected error " + ev.Outcome
		}
		return ""
	}
	if step.Expect.Error != "" {
		if ev.Outcome != step.Expect.Error {
			return fmt.Sprintf("expected error %s, got %s", step.Expect.Error, ev.Outcome)
		}
		return ""
	}
	if ev.Outcome != OutcomeOK && ev.Outcome != OutcomeNoop {
		return "unexpected error " + ev.Outcome
	}
	if step.Expect.Quantity != nil {
		got := "none"
		if ev.Line != nil {
			got = strconv.Itoa(*ev.Line)
		}
		if ev.Line == nil || *ev.Line != *step.Expect.Quantity {
			return fmt.Sprintf("expected quantity %d, got %s", *step.Expect.Quantity, got)
		}
	}
	return ""
}
