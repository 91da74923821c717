package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"batchline/internal/docstore"
	"batchline/models"
)

func rawDoc(t *testing.T, store docstore.Store, c docstore.Collection, id string) []byte {
	t.Helper()
	doc, found, err := store.Get(context.Background(), c, id)
	if err != nil || !found {
		t.Fatalf("raw %s/%s: found=%t err=%v", c, id, found, err)
	}
	return doc
}

func TestSupplierUpdateCascadesToItems(t *testing.T) {
	eachBackend(t, func(t *testing.T, reg *Registry, store docstore.Store) {
		ctx := context.Background()
		acme := mustSupplier(t, reg, "Acme")
		other := mustSupplier(t, reg, "Other")
		first := mustItem(t, reg, "Sugar", acme.ID)
		second := mustItem(t, reg, "Flour", acme.ID)
		unrelated := mustItem(t, reg, "Salt", other.ID)

		formula, err := reg.Formulas.Create(ctx, FormulaInput{Name: "Bread", Entries: []FormulaEntryInput{{ItemID: first.ID, Weight: 3}}})
		if err != nil {
			t.Fatalf("create formula: %v", err)
		}

		unrelatedBefore := rawDoc(t, store, docstore.Items, unrelated.ID)
		otherBefore := rawDoc(t, store, docstore.Suppliers, other.ID)
		formulaBefore := rawDoc(t, store, docstore.Formulas, formula.ID)

		updated, err := reg.Suppliers.Update(ctx, acme.ID, SupplierInput{Name: "Acme Foods"})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		items, err := reg.Items.ListBySupplier(ctx, acme.ID)
		if err != nil {
			t.Fatalf("ListBySupplier() error = %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("ListBySupplier() returned %d items, want 2", len(items))
		}
		for _, item := range items {
			if diff := cmp.Diff(updated, item.Supplier); diff != "" {
				t.Fatalf("item %s embedded supplier mismatch (-want +got):\n%s", item.Name, diff)
			}
		}
		if items[0].ID != first.ID && items[1].ID != first.ID || items[0].ID != second.ID && items[1].ID != second.ID {
			t.Fatalf("ListBySupplier() = %s, %s; want %s and %s", items[0].ID, items[1].ID, first.ID, second.ID)
		}

		if got := rawDoc(t, store, docstore.Items, unrelated.ID); !bytes.Equal(got, unrelatedBefore) {
			t.Fatalf("unrelated item rewritten:\nbefore %s\nafter  %s", unrelatedBefore, got)
		}
		if got := rawDoc(t, store, docstore.Suppliers, other.ID); !bytes.Equal(got, otherBefore) {
			t.Fatal("unrelated supplier rewritten")
		}
		if got := rawDoc(t, store, docstore.Formulas, formula.ID); !bytes.Equal(got, formulaBefore) {
			t.Fatal("supplier update cascaded transitively into formulas")
		}
	})
}

func TestItemUpdateCascadesToFormulasPreservingWeight(t *testing.T) {
	eachBackend(t, func(t *testing.T, reg *Registry, store docstore.Store) {
		ctx := context.Background()
		acme := mustSupplier(t, reg, "Acme")
		other := mustSupplier(t, reg, "Other")
		sugar := mustItem(t, reg, "Sugar", acme.ID)
		flour := mustItem(t, reg, "Flour", acme.ID)

		bread, err := reg.Formulas.Create(ctx, FormulaInput{Name: "Bread", Entries: []FormulaEntryInput{
			{ItemID: flour.ID, Weight: 500},
			{ItemID: sugar.ID, Weight: 12.5},
		}})
		if err != nil {
			t.Fatalf("create bread: %v", err)
		}
		cake, err := reg.Formulas.Create(ctx, FormulaInput{Name: "Cake", Entries: []FormulaEntryInput{
			{ItemID: sugar.ID, Weight: 200},
		}})
		if err != nil {
			t.Fatalf("create cake: %v", err)
		}
		plain, err := reg.Formulas.Create(ctx, FormulaInput{Name: "Plain", Entries: []FormulaEntryInput{
			{ItemID: flour.ID, Weight: 1},
		}})
		if err != nil {
			t.Fatalf("create plain: %v", err)
		}
		process, err := reg.Processes.Create(ctx, ProcessInput{Name: "Batch", FormulaID: cake.ID})
		if err != nil {
			t.Fatalf("create process: %v", err)
		}

		plainBefore := rawDoc(t, store, docstore.Formulas, plain.ID)
		processBefore := rawDoc(t, store, docstore.Processes, process.ID)

		updated, err := reg.Items.Update(ctx, sugar.ID, ItemInput{Name: "Cane Sugar", SupplierID: other.ID})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if updated.SupplierID != other.ID || updated.Supplier.Name != "Other" {
			t.Fatalf("updated item supplier = %+v", updated.Supplier)
		}

		gotBread, err := reg.Formulas.Get(ctx, bread.ID)
		if err != nil {
			t.Fatalf("Get(bread) error = %v", err)
		}
		if diff := cmp.Diff(updated, gotBread.Entries[1].Item); diff != "" {
			t.Fatalf("bread sugar entry mismatch (-want +got):\n%s", diff)
		}
		if gotBread.Entries[1].Weight != 12.5 || gotBread.Entries[0].Weight != 500 {
			t.Fatalf("bread weights = %v, %v", gotBread.Entries[0].Weight, gotBread.Entries[1].Weight)
		}
		if diff := cmp.Diff(flour, gotBread.Entries[0].Item); diff != "" {
			t.Fatalf("bread flour entry changed (-want +got):\n%s", diff)
		}
		if gotBread.UpdatedAt.Before(bread.UpdatedAt) {
			t.Fatal("bread timestamp went backwards")
		}

		gotCake, err := reg.Formulas.Get(ctx, cake.ID)
		if err != nil {
			t.Fatalf("Get(cake) error = %v", err)
		}
		if gotCake.Entries[0].Weight != 200 || gotCake.Entries[0].Item.Name != "Cane Sugar" {
			t.Fatalf("cake entry = %+v", gotCake.Entries[0])
		}

		if got := rawDoc(t, store, docstore.Formulas, plain.ID); !bytes.Equal(got, plainBefore) {
			t.Fatal("formula without the item was rewritten")
		}
		if got := rawDoc(t, store, docstore.Processes, process.ID); !bytes.Equal(got, processBefore) {
			t.Fatal("process formula snapshot was rewritten")
		}
	})
}

func TestUserUpdateCascadesToSprints(t *testing.T) {
	eachBackend(t, func(t *testing.T, reg *Registry, store docstore.Store) {
		ctx := context.Background()
		supplier := mustSupplier(t, reg, "Acme")
		item := mustItem(t, reg, "Sugar", supplier.ID)
		formula, err := reg.Formulas.Create(ctx, FormulaInput{Name: "F", Entries: []FormulaEntryInput{{ItemID: item.ID, Weight: 10}}})
		if err != nil {
			t.Fatalf("create formula: %v", err)
		}
		process, err := reg.Processes.Create(ctx, ProcessInput{Name: "P", FormulaID: formula.ID})
		if err != nil {
			t.Fatalf("create process: %v", err)
		}
		ana := mustUser(t, reg, "ana")
		bia := mustUser(t, reg, "bia")

		var anaSprints []string
		for i := 1; i <= 3; i++ {
			s, err := reg.Sprints.Create(ctx, SprintInput{
				ProcessID:  process.ID,
				Number:     i,
				Items:      []SprintItemInput{{ItemID: item.ID, Target: 10}},
				OperatorID: ana.ID,
			})
			if err != nil {
				t.Fatalf("create sprint: %v", err)
			}
			anaSprints = append(anaSprints, s.ID)
		}
		biaSprint, err := reg.Sprints.Create(ctx, SprintInput{ProcessID: process.ID, Number: 4, OperatorID: bia.ID})
		if err != nil {
			t.Fatalf("create sprint: %v", err)
		}
		biaBefore := rawDoc(t, store, docstore.Sprints, biaSprint.ID)

		updated, err := reg.Users.Update(ctx, ana.ID, UserUpdate{Username: "ana.souza", Role: models.RoleAdmin})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		for _, id := range anaSprints {
			sprint, err := reg.Sprints.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get(sprint) error = %v", err)
			}
			if diff := cmp.Diff(updated, sprint.Operator); diff != "" {
				t.Fatalf("sprint operator mismatch (-want +got):\n%s", diff)
			}
			if sprint.Items[0].Target != 10 {
				t.Fatalf("sprint target changed to %v", sprint.Items[0].Target)
			}
		}
		if got := rawDoc(t, store, docstore.Sprints, biaSprint.ID); !bytes.Equal(got, biaBefore) {
			t.Fatal("sprint of another operator was rewritten")
		}
	})
}

func TestUserUpdateCascadesToProcessHistory(t *testing.T) {
	eachBackend(t, func(t *testing.T, reg *Registry, _ docstore.Store) {
		ctx := context.Background()
		supplier := mustSupplier(t, reg, "Acme")
		item := mustItem(t, reg, "Sugar", supplier.ID)
		formula, err := reg.Formulas.Create(ctx, FormulaInput{Name: "F", Entries: []FormulaEntryInput{{ItemID: item.ID, Weight: 10}}})
		if err != nil {
			t.Fatalf("create formula: %v", err)
		}
		process, err := reg.Processes.Create(ctx, ProcessInput{Name: "P", FormulaID: formula.ID})
		if err != nil {
			t.Fatalf("create process: %v", err)
		}
		ana := mustUser(t, reg, "ana")
		bia := mustUser(t, reg, "bia")

		items := []models.SprintItem{models.NewSprintItem(item, 10)}
		if _, err := reg.Processes.AddSprint(ctx, process.ID, models.NewSprint("", 1, items, ana)); err != nil {
			t.Fatalf("AddSprint() error = %v", err)
		}
		if _, err := reg.Processes.AddSprint(ctx, process.ID, models.NewSprint("", 2, items, bia)); err != nil {
			t.Fatalf("AddSprint() error = %v", err)
		}

		updated, err := reg.Users.Update(ctx, ana.ID, UserUpdate{Username: "ana2", Role: models.RoleUser})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		got, err := reg.Processes.Get(ctx, process.ID)
		if err != nil {
			t.Fatalf("Processes.Get() error = %v", err)
		}
		if diff := cmp.Diff(updated, got.Sprints[0].Operator); diff != "" {
			t.Fatalf("process history operator is stale (-want +got):\n%s", diff)
		}
		if got.Sprints[1].Operator.Username != "bia" {
			t.Fatalf("other operator = %q, want bia", got.Sprints[1].Operator.Username)
		}

		stored, err := reg.Sprints.Get(ctx, got.Sprints[0].ID)
		if err != nil {
			t.Fatalf("Sprints.Get() error = %v", err)
		}
		if diff := cmp.Diff(stored, got.Sprints[0]); diff != "" {
			t.Fatalf("sprint document and process history disagree (-want +got):\n%s", diff)
		}
	})
}

func TestCascadeFailureReportsStorageErrorAndRollsBack(t *testing.T) {
	eachBackend(t, func(t *testing.T, reg *Registry, store docstore.Store) {
		ctx := context.Background()
		supplier := mustSupplier(t, reg, "Acme")
		item := mustItem(t, reg, "Sugar", supplier.ID)
		if err := store.Put(ctx, docstore.Items, "corrupt", []byte("{not json")); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		_, err := reg.Suppliers.Update(ctx, supplier.ID, SupplierInput{Name: "Renamed"})
		if !errors.Is(err, docstore.ErrStorage) {
			t.Fatalf("Update() error = %v, want ErrStorage", err)
		}

		got, err := reg.Suppliers.Get(ctx, supplier.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Name != "Acme" {
			t.Fatalf("supplier name = %q, want rollback to Acme", got.Name)
		}
		gotItem, err := reg.Items.Get(ctx, item.ID)
		if err != nil {
			t.Fatalf("Get(item) error = %v", err)
		}
		if gotItem.Supplier.Name != "Acme" {
			t.Fatalf("item supplier = %q, want Acme", gotItem.Supplier.Name)
		}
	})
}

func TestConcurrentUpdatesKeepCopiesConsistent(t *testing.T) {
	eachBackend(t, func(t *testing.T, reg *Registry, _ docstore.Store) {
		ctx := context.Background()
		supplier := mustSupplier(t, reg, "Acme")
		item := mustItem(t, reg, "Sugar", supplier.ID)
		formula, err := reg.Formulas.Create(ctx, FormulaInput{Name: "F", Entries: []FormulaEntryInput{{ItemID: item.ID, Weight: 7}}})
		if err != nil {
			t.Fatalf("create formula: %v", err)
		}

		const rounds = 10
		var wg sync.WaitGroup
		errs := make(chan error, 2*rounds)
		for i := 0; i < rounds; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				_, err := reg.Suppliers.Update(ctx, supplier.ID, SupplierInput{Name: fmt.Sprintf("Acme %d", i)})
				errs <- err
			}(i)
			go func(i int) {
				defer wg.Done()
				_, err := reg.Items.Update(ctx, item.ID, ItemInput{Name: fmt.Sprintf("Sugar %d", i), SupplierID: supplier.ID})
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent update error = %v", err)
			}
		}

		canonicalSupplier, err := reg.Suppliers.Get(ctx, supplier.ID)
		if err != nil {
			t.Fatalf("Get(supplier) error = %v", err)
		}
		canonicalItem, err := reg.Items.Get(ctx, item.ID)
		if err != nil {
			t.Fatalf("Get(item) error = %v", err)
		}
		if diff := cmp.Diff(canonicalSupplier, canonicalItem.Supplier); diff != "" {
			t.Fatalf("item supplier copy is stale (-want +got):\n%s", diff)
		}

		gotFormula, err := reg.Formulas.Get(ctx, formula.ID)
		if err != nil {
			t.Fatalf("Get(formula) error = %v", err)
		}
		if gotFormula.Entries[0].Item.Name != canonicalItem.Name || gotFormula.Entries[0].Weight != 7 {
			t.Fatalf("formula entry = %+v, want item %q weight 7", gotFormula.Entries[0], canonicalItem.Name)
		}
	})
}
