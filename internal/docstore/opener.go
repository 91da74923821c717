package docstore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	applog "batchline/internal/log"
)

// Factory opens a Store.
type Factory func(ctx context.Context) (Store, error)

// Opener lazily opens one Store and hands the same handle to every caller.
// When the primary factory fails the fallback, normally an in-memory store,
// is used instead and the Opener reports itself as degraded.
type Opener struct {
	primary  Factory
	fallback Factory

	once     sync.Once
	store    Store
	err      error
	degraded atomic.Bool
}

func NewOpener(primary, fallback Factory) *Opener {
	return &Opener{primary: primary, fallback: fallback}
}

// Open returns the shared handle, opening it on the first call.
func (o *Opener) Open(ctx context.Context) (Store, error) {
	o.once.Do(func() {
		o.store, o.err = o.open(ctx)
	})
	return o.store, o.err
}

func (o *Opener) open(ctx context.Context) (Store, error) {
	store, err := o.primary(ctx)
	if err == nil {
		return store, nil
	}
	if o.fallback == nil {
		return nil, Wrap("open document store", err)
	}

	applog.Warn(ctx, "document store unavailable, using in-memory fallback", "error", err)
	fallback, fallbackErr := o.fallback(ctx)
	if fallbackErr != nil {
		return nil, Wrap("open fallback document store", fmt.Errorf("%w (primary: %v)", fallbackErr, err))
	}
	o.degraded.Store(true)
	return fallback, nil
}

// Degraded reports whether Open fell back to the non-persistent store.
func (o *Opener) Degraded() bool {
	return o.degraded.Load()
}

// Close closes the handle if it was opened. Open must not be called after
// Close.
func (o *Opener) Close() error {
	o.once.Do(func() {})
	if o.store == nil {
		return nil
	}
	return o.store.Close()
}
