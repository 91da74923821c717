// Package registry stores the typed entity documents and keeps their
// embedded copies consistent.
//
// Every write that touches a canonical Supplier, Item or User also rewrites
// the copies embedded in Items, Formulas and Sprints. The canonical write and
// its cascade run inside one docstore.Store.Update and under the collection
// locks of both sides, so with the shipped backends they commit together.
// A Store without multi-key transactions applies the writes as it goes: a
// failed cascade then leaves the documents written before the failure in
// place, and callers should treat cascade consistency as best-effort.
package registry

import (
	"context"
	"time"

	"batchline/internal/docstore"
	"batchline/internal/metrics"
)

// Registry bundles one repository per entity over a shared store.
type Registry struct {
	Suppliers *Suppliers
	Items     *Items
	Formulas  *Formulas
	Users     *Users
	Sprints   *Sprints
	Processes *Processes
}

type Option func(*core)

// WithPasswordHasher replaces the bcrypt hasher.
func WithPasswordHasher(h PasswordHasher) Option {
	return func(c *core) {
		c.hasher = h
	}
}

// core is the state shared by every repository.
type core struct {
	store  docstore.Store
	locks  *lockSet
	hasher PasswordHasher
}

func New(store docstore.Store, opts ...Option) *Registry {
	c := &core{
		store:  store,
		locks:  newLockSet(),
		hasher: BcryptHasher{},
	}
	for _, opt := range opts {
		opt(c)
	}

	r := &Registry{
		Suppliers: &Suppliers{core: c},
		Items:     &Items{core: c},
		Formulas:  &Formulas{core: c},
		Users:     &Users{core: c},
		Sprints:   &Sprints{core: c},
	}
	r.Processes = &Processes{core: c, users: r.Users}
	return r
}

// update runs fn in one store transaction while holding the locks of every
// listed collection.
func (c *core) update(ctx context.Context, collections []docstore.Collection, fn func(docstore.Txn) error) error {
	unlock := c.locks.lock(collections...)
	defer unlock()
	return c.store.Update(ctx, fn)
}

// remove deletes id from collection. Missing ids are not an error and no
// cascade runs.
func (c *core) remove(ctx context.Context, collection docstore.Collection, id string) error {
	unlock := c.locks.lock(collection)
	defer unlock()
	return c.store.Delete(ctx, collection, id)
}

func observeCascade(relation string, rewritten int, started time.Time) {
	metrics.ObserveCascade(relation, rewritten, started)
}
