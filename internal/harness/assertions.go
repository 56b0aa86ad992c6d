package harness

import (
	"fmt"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s product=%d -> %s\n", i+1, ev.Tab, ev.Op, ev.ProductID, ev.Outcome)
		}
	}
	return buf.String()
}

func assertCart(state map[string]TabState, a Assertion) error {
	st := state[a.Tab]
	if a.TotalItems != nil && st.TotalItems != *a.TotalItems {
		return &AssertionError{
			Type:     AssertCart,
			Expected: fmt.Sprintf("%s total_items = %d", a.Tab, *a.TotalItems),
			Actual:   fmt.Sprintf("total_items = %d", st.TotalItems),
		}
	}
	if a.LineCount != nil && len(st.Lines) != *a.LineCount {
		return &AssertionError{
			Type:     AssertCart,
			Expected: fmt.Sprintf("%s line_count = %d", a.Tab, *a.LineCount),
			Actual:   fmt.Sprintf("line_count = %d", len(st.Lines)),
		}
	}

	got := make(map[int64]int, len(st.Lines))
	for _, l := range st.Lines {
		got[l.ProductID] = l.Quantity
	}
	ids := make([]int64, 0, len(a.Lines))
	for id := range a.Lines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		// A zero expectation asserts the line is absent.
		if want := a.Lines[id]; got[id] != want {
			return &AssertionError{
				Type:     AssertCart,
				Expected: fmt.Sprintf("%s product %d quantity %d", a.Tab, id, want),
				Actual:   fmt.Sprintf("quantity %d", got[id]),
			}
		}
	}
	return nil
}

func assertImage(h *Harness, a Assertion) error {
	img, ok := h.tabs[a.Tab].Images.Get(a.Product)
	switch {
	case a.Absent && ok:
		return &AssertionError{
			Type:     AssertImage,
			Expected: fmt.Sprintf("%s has no image for product %d", a.Tab, a.Product),
			Actual:   fmt.Sprintf("image %q", truncate(img)),
		}
	case !a.Absent && !ok:
		return &AssertionError{
			Type:     AssertImage,
			Expected: fmt.Sprintf("%s product %d image %q", a.Tab, a.Product, truncate(a.Image)),
			Actual:   "no image",
		}
	case !a.Absent && img != a.Image:
		return &AssertionError{
			Type:     AssertImage,
			Expected: fmt.Sprintf("%s product %d image %q", a.Tab, a.Product, truncate(a.Image)),
			Actual:   fmt.Sprintf("image %q", truncate(img)),
		}
	}
	return nil
}

func assertSyncState(state map[string]TabState, a Assertion) error {
	if got := state[a.Tab].Sync.State; got != a.State {
		return &AssertionError{
			Type:     AssertSyncState,
			Expected: fmt.Sprintf("%s sync state %s", a.Tab, a.State),
			Actual:   got,
		}
	}
	return nil
}

func assertConverged(state map[string]TabState, a Assertion) error {
	first := state[a.Tabs[0]].Digest
	for _, name := range a.Tabs[1:] {
		if d := state[name].Digest; d != first {
			return &AssertionError{
				Type:     AssertConverged,
				Expected: fmt.Sprintf("tabs %v hold identical images", a.Tabs),
				Actual:   fmt.Sprintf("%s=%s %s=%s", a.Tabs[0], first, name, d),
			}
		}
	}
	return nil
}

// traceMatches reports whether ev is op, optionally pinned to a tab.
func traceMatches(ev TraceEvent, op, tab string) bool {
	return ev.Op == op && (tab == "" || ev.Tab == tab)
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if traceMatches(ev, a.Op, a.Tab) && (a.Product == 0 || ev.ProductID == a.Product) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("op %s (tab %q, product %d)", a.Op, a.Tab, a.Product),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if traceMatches(ev, a.Op, a.Tab) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Op),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks ops appear in order; intervening steps are
// allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Ops) && traceMatches(ev, a.Ops[next], a.Tab) {
			next++
		}
	}
	if next < len(a.Ops) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("ops in order: %v", a.Ops),
			Actual:   fmt.Sprintf("missing %s after %v", a.Ops[next], a.Ops[:next]),
			Trace:    trace,
		}
	}
	return nil
}

func truncate(s string) string {
	if len(s) <= 48 {
		return s
	}
	return s[:45] + "..."
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, h *Harness) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertCart:
			err = assertCart(result.State, a)
		case AssertImage:
			err = assertImage(h, a)
		case AssertSyncState:
			err = assertSyncState(result.State, a)
		case AssertConverged:
			err = assertConverged(result.State, a)
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
