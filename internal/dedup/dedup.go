// Package dedup is the idempotency gate between the vault log stream and the
// trade engine. The log source delivers at-least-once; the gate guarantees
// at-most-once application per (event kind, transaction hash).
package dedup

import (
	"context"
	"fmt"
	"sync"

	"github.com/trenches/ip-venue/internal/domain"
)

// ClaimStore is the persistence behind the gate. An in-memory set gives
// process-lifetime dedup (the reference behavior); a durable table extends
// the guarantee across restarts. store.Store satisfies this interface.
type ClaimStore interface {
	// ClaimEvent atomically records the key and reports whether this call
	// inserted it. A plain read-then-write would race under concurrent
	// delivery of the same transaction.
	ClaimEvent(ctx context.Context, eventKind, txHash string) (bool, error)
}

// Deduplicator gates event application on a claim store.
//
// A claim is taken before the trade engine mutation is attempted and is
// never released, even if the mutation later fails: the venue prefers a
// lost event over a double-applied balance mutation.
type Deduplicator struct {
	claims ClaimStore
}

// New creates a deduplicator over the given claim store
func New(claims ClaimStore) *Deduplicator {
	return &Deduplicator{claims: claims}
}

// TryClaim returns true when the event is claimed by this call and should be
// applied, false when it was already processed and must be skipped.
func (d *Deduplicator) TryClaim(ctx context.Context, kind domain.EventKind, txHash string) (bool, error) {
	claimed, err := d.claims.ClaimEvent(ctx, string(kind), txHash)
	if err != nil {
		return false, fmt.Errorf("failed to claim event %s/%s: %w", kind, txHash, err)
	}
	return claimed, nil
}

// MemorySet is a process-lifetime ClaimStore backed by a mutex-guarded map.
type MemorySet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemorySet creates an empty in-memory claim store
func NewMemorySet() *MemorySet {
	return &MemorySet{seen: make(map[string]struct{})}
}

// ClaimEvent implements ClaimStore
func (m *MemorySet) ClaimEvent(_ context.Context, eventKind, txHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := eventKind + ":" + txHash
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = struct{}{}
	return true, nil
}

// Len reports the number of claimed keys, for introspection on shutdown
func (m *MemorySet) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
