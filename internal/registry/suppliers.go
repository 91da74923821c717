package registry

import (
	"context"
	"strings"
	"time"

	"batchline/internal/docstore"
	"batchline/models"
)

type Suppliers struct {
	*core
}

func (r *Suppliers) Create(ctx context.Context, in SupplierInput) (models.Supplier, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return models.Supplier{}, err
	}

	supplier := models.NewSupplier(in.Name)
	err := r.update(ctx, []docstore.Collection{docstore.Suppliers}, func(txn docstore.Txn) error {
		return save(ctx, txn, docstore.Suppliers, supplier.ID, supplier)
	})
	if err != nil {
		return models.Supplier{}, err
	}
	return supplier, nil
}

func (r *Suppliers) Get(ctx context.Context, id string) (models.Supplier, error) {
	return load[models.Supplier](ctx, r.store, docstore.Suppliers, id)
}

// Update renames the supplier and refreshes the copy embedded in every item
// that references it.
func (r *Suppliers) Update(ctx context.Context, id string, in SupplierInput) (models.Supplier, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return models.Supplier{}, err
	}

	var (
		updated   models.Supplier
		rewritten int
	)
	started := time.Now()
	err := r.update(ctx, []docstore.Collection{docstore.Suppliers, docstore.Items}, func(txn docstore.Txn) error {
		supplier, err := load[models.Supplier](ctx, txn, docstore.Suppliers, id)
		if err != nil {
			return err
		}
		supplier.Name = in.Name
		supplier.Touch()
		if err := save(ctx, txn, docstore.Suppliers, supplier.ID, supplier); err != nil {
			return err
		}
		rewritten, err = cascadeSupplier(ctx, txn, supplier)
		if err != nil {
			return err
		}
		updated = supplier
		return nil
	})
	if err != nil {
		return models.Supplier{}, err
	}
	observeCascade(relationSupplierItem, rewritten, started)
	return updated, nil
}

// Delete removes the supplier. Items keep their embedded copy.
func (r *Suppliers) Delete(ctx context.Context, id string) error {
	return r.remove(ctx, docstore.Suppliers, id)
}

func (r *Suppliers) List(ctx context.Context, page, size int) ([]models.Supplier, error) {
	return list[models.Supplier](ctx, r.store, docstore.Suppliers, page, size)
}

// Search matches name case-insensitively.
func (r *Suppliers) Search(ctx context.Context, name string, page, size int) ([]models.Supplier, error) {
	return search[models.Supplier](ctx, r.store, docstore.Suppliers, "name", name, page, size)
}

// FindByName returns the first supplier whose name equals name ignoring case.
func (r *Suppliers) FindByName(ctx context.Context, name string) (models.Supplier, error) {
	name = strings.TrimSpace(name)
	supplier, ok, err := first(ctx, r.store, docstore.Suppliers, func(s models.Supplier) bool {
		return strings.EqualFold(s.Name, name)
	})
	if err != nil {
		return models.Supplier{}, err
	}
	if !ok {
		return models.Supplier{}, notFound(docstore.Suppliers, name)
	}
	return supplier, nil
}
