package models

import "slices"

// FormulaEntry pairs an embedded Item copy with its absolute per-sprint weight.
type FormulaEntry struct {
	Item   Item    `json:"item"`
	Weight float64 `json:"weight"`
}

// ItemProportion is an item's share of its formula's total weight.
type ItemProportion struct {
	Item       Item    `json:"item"`
	Proportion float64 `json:"proportion"`
}

type Formula struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Entries []FormulaEntry `json:"entries"`
	Audit
}

func NewFormula(name string) Formula {
	return Formula{ID: NewID(), Name: name, Entries: []FormulaEntry{}, Audit: newAudit()}
}

// AddEntry appends item with the given per-sprint weight.
func (f *Formula) AddEntry(item Item, weight float64) {
	f.Entries = append(f.Entries, FormulaEntry{Item: item, Weight: weight})
	f.Touch()
}

// AddEntriesByProportion appends items pairwise with proportions, each weight
// being its proportion over the sum of all proportions. Extra items or
// proportions without a partner are ignored.
func (f *Formula) AddEntriesByProportion(items []Item, proportions []float64) {
	n := min(len(items), len(proportions))
	var total float64
	for _, p := range proportions[:n] {
		total += p
	}
	for i := 0; i < n; i++ {
		weight := 0.0
		if total > 0 {
			weight = proportions[i] / total
		}
		f.Entries = append(f.Entries, FormulaEntry{Item: items[i], Weight: weight})
	}
	f.Touch()
}

// Clone returns a copy that shares no entries with f.
func (f Formula) Clone() Formula {
	f.Entries = slices.Clone(f.Entries)
	if f.Entries == nil {
		f.Entries = []FormulaEntry{}
	}
	return f
}

func (f Formula) TotalWeight() float64 {
	var total float64
	for _, entry := range f.Entries {
		total += entry.Weight
	}
	return total
}

// Proportions derives weight/total for every entry. All proportions are zero
// when the total weight is not positive.
func (f Formula) Proportions() []ItemProportion {
	total := f.TotalWeight()
	out := make([]ItemProportion, 0, len(f.Entries))
	for _, entry := range f.Entries {
		out = append(out, ItemProportion{Item: entry.Item, Proportion: proportion(entry.Weight, total)})
	}
	return out
}

// Proportion reports the share of itemID, or false when the item is not part
// of the formula.
func (f Formula) Proportion(itemID string) (float64, bool) {
	total := f.TotalWeight()
	for _, entry := range f.Entries {
		if entry.Item.ID == itemID {
			return proportion(entry.Weight, total), true
		}
	}
	return 0, false
}

// ReplaceItem swaps every embedded copy of item while keeping the stored
// weights. It reports whether any entry changed.
func (f *Formula) ReplaceItem(item Item) bool {
	changed := false
	for i := range f.Entries {
		if f.Entries[i].Item.ID == item.ID {
			f.Entries[i].Item = item
			changed = true
		}
	}
	if changed {
		f.Touch()
	}
	return changed
}

func proportion(weight, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return weight / total
}
