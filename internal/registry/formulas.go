package registry

import (
	"context"
	"strings"

	"batchline/internal/docstore"
	"batchline/models"
)

type Formulas struct {
	*core
}

// Create embeds a copy of every referenced item. Unknown items fail with
// ErrValidation.
func (r *Formulas) Create(ctx context.Context, in FormulaInput) (models.Formula, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return models.Formula{}, err
	}

	var formula models.Formula
	err := r.update(ctx, []docstore.Collection{docstore.Items, docstore.Formulas}, func(txn docstore.Txn) error {
		formula = models.NewFormula(in.Name)
		entries, err := resolveEntries(ctx, txn, in.Entries)
		if err != nil {
			return err
		}
		formula.Entries = entries
		return save(ctx, txn, docstore.Formulas, formula.ID, formula)
	})
	if err != nil {
		return models.Formula{}, err
	}
	return formula, nil
}

// CreateByProportion builds a formula whose weights are the given shares over
// their sum.
func (r *Formulas) CreateByProportion(ctx context.Context, in ProportionalFormulaInput) (models.Formula, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return models.Formula{}, err
	}
	if len(in.ItemIDs) != len(in.Shares) {
		return models.Formula{}, invalid("got %d items and %d shares", len(in.ItemIDs), len(in.Shares))
	}

	var formula models.Formula
	err := r.update(ctx, []docstore.Collection{docstore.Items, docstore.Formulas}, func(txn docstore.Txn) error {
		items := make([]models.Item, 0, len(in.ItemIDs))
		for _, id := range in.ItemIDs {
			item, err := load[models.Item](ctx, txn, docstore.Items, strings.TrimSpace(id))
			if err != nil {
				return missingReference(err)
			}
			items = append(items, item)
		}
		formula = models.NewFormula(in.Name)
		formula.AddEntriesByProportion(items, in.Shares)
		return save(ctx, txn, docstore.Formulas, formula.ID, formula)
	})
	if err != nil {
		return models.Formula{}, err
	}
	return formula, nil
}

func (r *Formulas) Get(ctx context.Context, id string) (models.Formula, error) {
	return load[models.Formula](ctx, r.store, docstore.Formulas, id)
}

// Update replaces the name and entries. Processes created from the formula
// keep their snapshot.
func (r *Formulas) Update(ctx context.Context, id string, in FormulaInput) (models.Formula, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return models.Formula{}, err
	}

	var updated models.Formula
	err := r.update(ctx, []docstore.Collection{docstore.Items, docstore.Formulas}, func(txn docstore.Txn) error {
		formula, err := load[models.Formula](ctx, txn, docstore.Formulas, id)
		if err != nil {
			return err
		}
		entries, err := resolveEntries(ctx, txn, in.Entries)
		if err != nil {
			return err
		}
		formula.Name = in.Name
		formula.Entries = entries
		formula.Touch()
		updated = formula
		return save(ctx, txn, docstore.Formulas, formula.ID, formula)
	})
	if err != nil {
		return models.Formula{}, err
	}
	return updated, nil
}

// Proportions returns every entry's share of the formula's total weight.
func (r *Formulas) Proportions(ctx context.Context, id string) ([]models.ItemProportion, error) {
	formula, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return formula.Proportions(), nil
}

// Proportion returns the share of itemID. An item outside the formula is
// ErrValidation.
func (r *Formulas) Proportion(ctx context.Context, id, itemID string) (float64, error) {
	formula, err := r.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	share, ok := formula.Proportion(itemID)
	if !ok {
		return 0, invalid("item %q is not part of formula %q", itemID, id)
	}
	return share, nil
}

func (r *Formulas) Delete(ctx context.Context, id string) error {
	return r.remove(ctx, docstore.Formulas, id)
}

func (r *Formulas) List(ctx context.Context, page, size int) ([]models.Formula, error) {
	return list[models.Formula](ctx, r.store, docstore.Formulas, page, size)
}

func (r *Formulas) Search(ctx context.Context, name string, page, size int) ([]models.Formula, error) {
	return search[models.Formula](ctx, r.store, docstore.Formulas, "name", name, page, size)
}

func resolveEntries(ctx context.Context, r docstore.Reader, in []FormulaEntryInput) ([]models.FormulaEntry, error) {
	entries := make([]models.FormulaEntry, 0, len(in))
	for _, e := range in {
		item, err := load[models.Item](ctx, r, docstore.Items, strings.TrimSpace(e.ItemID))
		if err != nil {
			return nil, missingReference(err)
		}
		entries = append(entries, models.FormulaEntry{Item: item, Weight: e.Weight})
	}
	return entries, nil
}
