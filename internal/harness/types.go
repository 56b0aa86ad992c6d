package harness

import "github.com/roach88/emporium/internal/tabsync"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	Tab       string `json:"tab,omitempty"`
	Op        string `json:"op"`
	ProductID int64  `json:"product_id,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`

	// Outcome is "ok", "noop", or the error code the step failed with.
	Outcome string `json:"outcome"`

	// Line is the resulting quantity for cart steps that touch one line.
	Line *int `json:"line,omitempty"`

	// Delivered counts messages moved by a deliver step.
	Delivered int `json:"delivered,omitempty"`
}

// Outcome values other than error codes.
const (
	OutcomeOK   = "ok"
	OutcomeNoop = "noop"
)

// LineState is one cart line in a TabState.
type LineState struct {
	ProductID int64 `json:"id"`
	Quantity  int   `json:"quantity"`
}

// TabState is a tab's state when the scenario finished.
type TabState struct {
	Lines      []LineState   `json:"lines"`
	TotalItems int           `json:"total_items"`
	Images     int           `json:"images"`
	Digest     string        `json:"-"`
	Sync       tabsync.Stats `json:"sync"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent        `json:"trace"`
	Errors []string            `json:"errors,omitempty"`
	State  map[string]TabState `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]TabState),
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
