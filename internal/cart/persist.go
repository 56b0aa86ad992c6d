package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/emporium/internal/localstore"
)

// StorageKey is the key the cart snapshot is stored under.
const StorageKey = "firstEmporiumCart"

// KV is the subset of the local key-value store the persister needs.
type KV interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
}

// Persister saves and restores cart snapshots.
type Persister struct {
	kv        KV
	namespace string
}

// NewPersister creates a persister writing to namespace in kv.
// An empty namespace uses localstore.DefaultNamespace.
func NewPersister(kv KV, namespace string) *Persister {
	if namespace == "" {
		namespace = localstore.DefaultNamespace
	}
	return &Persister{kv: kv, namespace: namespace}
}

// Save writes the cart's lines as JSON.
func (p *Persister) Save(ctx context.Context, c *Cart) error {
	data, err := json.Marshal(c.Snapshot())
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := p.kv.Set(ctx, p.namespace, StorageKey, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Load restores a saved snapshot into c. A missing snapshot leaves c
// unchanged and returns 0. Returns the number of lines restored.
func (p *Persister) Load(ctx context.Context, c *Cart) (int, error) {
	data, err := p.kv.Get(ctx, p.namespace, StorageKey)
	if errors.Is(err, localstore.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load cart: %w", err)
	}

	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return 0, fmt.Errorf("decode cart: %w", err)
	}
	return c.Restore(lines), nil
}

// Discard deletes the saved snapshot.
func (p *Persister) Discard(ctx context.Context) error {
	if err := p.kv.Delete(ctx, p.namespace, StorageKey); err != nil {
		return fmt.Errorf("discard cart: %w", err)
	}
	return nil
}
