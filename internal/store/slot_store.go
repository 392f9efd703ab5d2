package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetSlot returns the bytes stored under name, or ErrSlotNotFound.
func (s *SQLiteStore) GetSlot(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, "SELECT data FROM slots WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading slot %s: %w", name, err)
	}
	return data, nil
}

// PutSlot replaces the contents of the named slot.
func (s *SQLiteStore) PutSlot(ctx context.Context, name string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		name, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing slot %s: %w", name, err)
	}
	return nil
}

// DeleteSlot removes the named slot. Deleting a missing slot is not an error.
func (s *SQLiteStore) DeleteSlot(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM slots WHERE name = ?", name); err != nil {
		return fmt.Errorf("deleting slot %s: %w", name, err)
	}
	return nil
}

// SlotStore is the subset of Store needed to back a NamedSlot.
type SlotStore interface {
	GetSlot(ctx context.Context, name string) ([]byte, error)
	PutSlot(ctx context.Context, name string, data []byte) error
	DeleteSlot(ctx context.Context, name string) error
}

// NamedSlot binds a slot name to a SlotStore so it can be handed to code
// that persists a single blob.
type NamedSlot struct {
	store SlotStore
	name  string
}

// NewNamedSlot returns a NamedSlot for name backed by st.
func NewNamedSlot(st SlotStore, name string) *NamedSlot {
	return &NamedSlot{store: st, name: name}
}

// Name returns the slot name.
func (n *NamedSlot) Name() string { return n.name }

// Load returns the slot contents. A missing slot yields nil, nil.
func (n *NamedSlot) Load(ctx context.Context) ([]byte, error) {
	data, err := n.store.GetSlot(ctx, n.name)
	if errors.Is(err, ErrSlotNotFound) {
		return nil, nil
	}
	return data, err
}

// Save replaces the slot contents.
func (n *NamedSlot) Save(ctx context.Context, data []byte) error {
	return n.store.PutSlot(ctx, n.name, data)
}

// Clear removes the slot.
func (n *NamedSlot) Clear(ctx context.Context) error {
	return n.store.DeleteSlot(ctx, n.name)
}
