// Package docstore defines the keyed document store shared by every entity
// collection. Documents are opaque bytes partitioned into named collections;
// the only index is the document id, so lookups other than by id are full
// scans.
package docstore

import (
	"context"
	"errors"
	"fmt"
)

// Collection names a partition of the store. One collection per entity type.
type Collection string

const (
	Suppliers Collection = "suppliers"
	Items     Collection = "items"
	Formulas  Collection = "formulas"
	Sprints   Collection = "sprints"
	Users     Collection = "users"
	Processes Collection = "processes"
)

// Collections lists every collection in a stable order.
var Collections = []Collection{Formulas, Items, Processes, Sprints, Suppliers, Users}

var (
	// ErrStorage marks serialization and I/O failures.
	ErrStorage = errors.New("storage failure")

	// ErrStop ends a ForEach early without error.
	ErrStop = errors.New("stop iteration")
)

// Wrap annotates err as a storage failure of op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// Reader looks documents up.
type Reader interface {
	// Get returns the document stored under id. found is false when there is
	// none.
	Get(ctx context.Context, c Collection, id string) (doc []byte, found bool, err error)

	// ForEach calls fn for every document of c in backend iteration order.
	// Documents passed to fn may be retained. Returning ErrStop from fn ends
	// the iteration and ForEach returns nil; any other error is returned
	// unchanged.
	ForEach(ctx context.Context, c Collection, fn func(id string, doc []byte) error) error
}

type Writer interface {
	// Put inserts or replaces the document stored under id.
	Put(ctx context.Context, c Collection, id string, doc []byte) error

	// Delete removes id. Deleting a missing id is not an error.
	Delete(ctx context.Context, c Collection, id string) error
}

// Txn is the view handed to Update callbacks.
type Txn interface {
	Reader
	Writer
}

// Store is a process-wide document store handle.
type Store interface {
	Txn

	// Update runs fn as one unit. Both shipped backends commit every write
	// made through the Txn together or not at all; fn may run more than once
	// when the backend retries a conflicting commit. Errors returned by fn
	// are passed through unchanged.
	Update(ctx context.Context, fn func(Txn) error) error

	Close() error
}
