package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/emporium/internal/cart"
	"github.com/roach88/emporium/internal/localstore"
)

// HistoryKey is the key the order history is stored under.
const HistoryKey = "firstEmporiumOrderHistory"

// MaxHistory is the number of records kept.
const MaxHistory = 10

// History is the capped local order log.
type History struct {
	kv        cart.KV
	namespace string
	logger    *slog.Logger
}

// NewHistory creates a history in namespace of kv. An empty namespace
// uses localstore.DefaultNamespace; a nil logger discards.
func NewHistory(kv cart.KV, namespace string, logger *slog.Logger) *History {
	if namespace == "" {
		namespace = localstore.DefaultNamespace
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &History{kv: kv, namespace: namespace, logger: logger}
}

// List returns the stored records, oldest first. An unreadable history is
// logged and treated as empty.
func (h *History) List(ctx context.Context) ([]Record, error) {
	data, err := h.kv.Get(ctx, h.namespace, HistoryKey)
	if errors.Is(err, localstore.ErrNotFound) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load order history: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		h.logger.Warn("could not decode order history", "error", err)
		return []Record{}, nil
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// Append adds r and keeps only the most recent MaxHistory records.
func (h *History) Append(ctx context.Context, r Record) error {
	records, err := h.List(ctx)
	if err != nil {
		return err
	}
	records = append(records, r)
	if len(records) > MaxHistory {
		records = records[len(records)-MaxHistory:]
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode order history: %w", err)
	}
	if err := h.kv.Set(ctx, h.namespace, HistoryKey, data); err != nil {
		return fmt.Errorf("save order history: %w", err)
	}
	h.logger.Debug("order saved to history", "id", r.ID, "records", len(records))
	return nil
}

// Find returns the record with the given ID.
func (h *History) Find(ctx context.Context, id string) (Record, bool, error) {
	records, err := h.List(ctx)
	if err != nil {
		return Record{}, false, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, true, nil
		}
	}
	return Record{}, false, nil
}

// Clear deletes the history.
func (h *History) Clear(ctx context.Context) error {
	if err := h.kv.Delete(ctx, h.namespace, HistoryKey); err != nil {
		return fmt.Errorf("clear order history: %w", err)
	}
	return nil
}
