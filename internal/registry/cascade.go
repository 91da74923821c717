package registry

import (
	"context"

	"batchline/internal/docstore"
	applog "batchline/internal/log"
	"batchline/models"
)

// Cascades rewrite the embedded copies of a just-written canonical document.
// Each one is a full scan of the dependent collection. Only documents that
// reference the canonical id are written back; everything else is left
// byte-for-byte untouched. Cascades are not transitive and deletes never
// cascade.
//
// The canonical write and all of its rewrites share one store transaction.
// On badger a cascade touching more documents than fit in one transaction
// fails with badger.ErrTxnTooBig and the whole update is rolled back, the
// canonical write included.

const (
	relationSupplierItem = "supplier_item"
	relationItemFormula  = "item_formula"
	relationUserSprint   = "user_sprint"
)

func cascadeSupplier(ctx context.Context, txn docstore.Txn, supplier models.Supplier) (int, error) {
	return rewrite(ctx, txn, docstore.Items, relationSupplierItem, func(item *models.Item) bool {
		if item.SupplierID != supplier.ID {
			return false
		}
		item.Supplier = supplier
		item.Touch()
		return true
	})
}

// cascadeItem keeps every entry weight as stored.
func cascadeItem(ctx context.Context, txn docstore.Txn, item models.Item) (int, error) {
	return rewrite(ctx, txn, docstore.Formulas, relationItemFormula, func(formula *models.Formula) bool {
		return formula.ReplaceItem(item)
	})
}

// cascadeUser refreshes the operator in every sprint document and in the
// sprint copies held by process histories. A history copy of a rewritten
// sprint document is replaced by that document.
func cascadeUser(ctx context.Context, txn docstore.Txn, user models.User) (int, error) {
	rewritten := make(map[string]models.Sprint)
	sprints, err := rewrite(ctx, txn, docstore.Sprints, relationUserSprint, func(sprint *models.Sprint) bool {
		if sprint.Operator.ID != user.ID {
			return false
		}
		sprint.SetOperator(user)
		rewritten[sprint.ID] = *sprint
		return true
	})
	if err != nil {
		return 0, err
	}

	processes, err := rewrite(ctx, txn, docstore.Processes, relationUserSprint, func(process *models.Process) bool {
		changed := false
		for i := range process.Sprints {
			if process.Sprints[i].Operator.ID != user.ID {
				continue
			}
			if doc, ok := rewritten[process.Sprints[i].ID]; ok {
				process.Sprints[i] = doc.Clone()
			} else {
				process.Sprints[i].SetOperator(user)
			}
			changed = true
		}
		if changed {
			process.Touch()
		}
		return changed
	})
	if err != nil {
		return 0, err
	}
	return sprints + processes, nil
}

// rewrite scans c, applies fn to every decoded document and persists the ones
// fn reports as changed. Writes happen after the scan completes. The first
// failure aborts the cascade.
func rewrite[T any](ctx context.Context, txn docstore.Txn, c docstore.Collection, relation string, fn func(*T) bool) (int, error) {
	type pending struct {
		id  string
		doc T
	}
	var changed []pending

	err := txn.ForEach(ctx, c, func(id string, raw []byte) error {
		doc, err := decode[T](c, id, raw)
		if err != nil {
			return err
		}
		if fn(&doc) {
			changed = append(changed, pending{id: id, doc: doc})
		}
		return nil
	})
	if err != nil {
		applog.Error(ctx, "cascade scan failed", "relationship", relation, "error", err)
		return 0, err
	}

	for _, p := range changed {
		if err := save(ctx, txn, c, p.id, p.doc); err != nil {
			applog.Error(ctx, "cascade write failed", "relationship", relation, "id", p.id, "error", err)
			return 0, err
		}
	}

	applog.Debug(ctx, "cascade applied", "relationship", relation, "rewritten", len(changed))
	return len(changed), nil
}
