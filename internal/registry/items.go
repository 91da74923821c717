package registry

import (
	"context"
	"strings"
	"time"

	"batchline/internal/docstore"
	"batchline/models"
)

type Items struct {
	*core
}

// Create embeds a copy of the referenced supplier, which must exist.
func (r *Items) Create(ctx context.Context, in ItemInput) (models.Item, error) {
	in = normalizeItem(in)
	if err := check(in); err != nil {
		return models.Item{}, err
	}

	var item models.Item
	err := r.update(ctx, []docstore.Collection{docstore.Suppliers, docstore.Items}, func(txn docstore.Txn) error {
		supplier, err := load[models.Supplier](ctx, txn, docstore.Suppliers, in.SupplierID)
		if err != nil {
			return missingReference(err)
		}
		item = models.NewItem(in.Name, supplier)
		return save(ctx, txn, docstore.Items, item.ID, item)
	})
	if err != nil {
		return models.Item{}, err
	}
	return item, nil
}

func (r *Items) Get(ctx context.Context, id string) (models.Item, error) {
	return load[models.Item](ctx, r.store, docstore.Items, id)
}

// Update renames or re-points the item and refreshes every formula entry
// embedding it. Entry weights are kept.
func (r *Items) Update(ctx context.Context, id string, in ItemInput) (models.Item, error) {
	in = normalizeItem(in)
	if err := check(in); err != nil {
		return models.Item{}, err
	}

	var (
		updated   models.Item
		rewritten int
	)
	started := time.Now()
	collections := []docstore.Collection{docstore.Suppliers, docstore.Items, docstore.Formulas}
	err := r.update(ctx, collections, func(txn docstore.Txn) error {
		item, err := load[models.Item](ctx, txn, docstore.Items, id)
		if err != nil {
			return err
		}
		supplier, err := load[models.Supplier](ctx, txn, docstore.Suppliers, in.SupplierID)
		if err != nil {
			return missingReference(err)
		}
		item.Name = in.Name
		item.SetSupplier(supplier)
		if err := save(ctx, txn, docstore.Items, item.ID, item); err != nil {
			return err
		}
		rewritten, err = cascadeItem(ctx, txn, item)
		if err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return models.Item{}, err
	}
	observeCascade(relationItemFormula, rewritten, started)
	return updated, nil
}

// Delete removes the item. Formulas keep their embedded copy.
func (r *Items) Delete(ctx context.Context, id string) error {
	return r.remove(ctx, docstore.Items, id)
}

func (r *Items) List(ctx context.Context, page, size int) ([]models.Item, error) {
	return list[models.Item](ctx, r.store, docstore.Items, page, size)
}

func (r *Items) Search(ctx context.Context, name string, page, size int) ([]models.Item, error) {
	return search[models.Item](ctx, r.store, docstore.Items, "name", name, page, size)
}

// ListBySupplier returns every item referencing supplierID.
func (r *Items) ListBySupplier(ctx context.Context, supplierID string) ([]models.Item, error) {
	return filter(ctx, r.store, docstore.Items, func(item models.Item) bool {
		return item.SupplierID == supplierID
	})
}

func normalizeItem(in ItemInput) ItemInput {
	in.Name = strings.TrimSpace(in.Name)
	in.SupplierID = strings.TrimSpace(in.SupplierID)
	return in
}
