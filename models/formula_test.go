package models

import (
	"math"
	"testing"
)

func TestFormulaProportions(t *testing.T) {
	t.Parallel()

	supplier := NewSupplier("Acme")
	a := NewItem("A", supplier)
	b := NewItem("B", supplier)

	formula := NewFormula("F")
	formula.AddEntry(a, 30)
	formula.AddEntry(b, 10)

	if got := formula.TotalWeight(); got != 40 {
		t.Fatalf("TotalWeight() = %v, want 40", got)
	}

	proportions := formula.Proportions()
	if len(proportions) != 2 {
		t.Fatalf("len(Proportions()) = %d, want 2", len(proportions))
	}
	if proportions[0].Proportion != 0.75 || proportions[1].Proportion != 0.25 {
		t.Fatalf("Proportions() = %+v", proportions)
	}

	if got, ok := formula.Proportion(b.ID); !ok || got != 0.25 {
		t.Fatalf("Proportion(b) = %v, %t, want 0.25, true", got, ok)
	}
	if _, ok := formula.Proportion("missing"); ok {
		t.Fatal("Proportion(missing) reported found")
	}
}

func TestFormulaProportionsWithZeroTotal(t *testing.T) {
	t.Parallel()

	item := NewItem("A", NewSupplier("Acme"))
	formula := NewFormula("F")
	formula.AddEntry(item, 0)

	if got, ok := formula.Proportion(item.ID); !ok || got != 0 {
		t.Fatalf("Proportion() = %v, %t, want 0, true", got, ok)
	}
	for _, p := range formula.Proportions() {
		if p.Proportion != 0 {
			t.Fatalf("proportion = %v, want 0", p.Proportion)
		}
	}
}

func TestAddEntriesByProportion(t *testing.T) {
	t.Parallel()

	supplier := NewSupplier("Acme")
	items := []Item{NewItem("A", supplier), NewItem("B", supplier), NewItem("C", supplier)}

	formula := NewFormula("F")
	formula.AddEntriesByProportion(items, []float64{3, 1})

	if len(formula.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(formula.Entries))
	}
	if formula.Entries[0].Weight != 0.75 || formula.Entries[1].Weight != 0.25 {
		t.Fatalf("weights = %v, %v", formula.Entries[0].Weight, formula.Entries[1].Weight)
	}

	zero := NewFormula("Z")
	zero.AddEntriesByProportion(items[:1], []float64{0})
	if w := zero.Entries[0].Weight; w != 0 || math.IsNaN(w) {
		t.Fatalf("weight = %v, want 0", w)
	}
}

func TestReplaceItemPreservesWeight(t *testing.T) {
	t.Parallel()

	supplier := NewSupplier("Acme")
	a := NewItem("A", supplier)
	b := NewItem("B", supplier)

	formula := NewFormula("F")
	formula.AddEntry(a, 12.5)
	formula.AddEntry(b, 7)

	renamed := a
	renamed.Name = "A2"
	if !formula.ReplaceItem(renamed) {
		t.Fatal("ReplaceItem() = false, want true")
	}
	if formula.Entries[0].Item.Name != "A2" || formula.Entries[0].Weight != 12.5 {
		t.Fatalf("entry = %+v", formula.Entries[0])
	}
	if formula.Entries[1].Item.Name != "B" {
		t.Fatalf("unrelated entry changed: %+v", formula.Entries[1])
	}

	if formula.ReplaceItem(NewItem("other", supplier)) {
		t.Fatal("ReplaceItem(unrelated) = true, want false")
	}
}
