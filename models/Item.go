package models

// Item is a raw material. Supplier is a denormalized copy of the Supplier
// referenced by SupplierID and is rewritten whenever that Supplier changes.
type Item struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	SupplierID string   `json:"supplier_id"`
	Supplier   Supplier `json:"supplier"`
	Audit
}

func NewItem(name string, supplier Supplier) Item {
	return Item{
		ID:         NewID(),
		Name:       name,
		SupplierID: supplier.ID,
		Supplier:   supplier,
		Audit:      newAudit(),
	}
}

// SetSupplier points the item at another supplier and refreshes the copy.
func (i *Item) SetSupplier(supplier Supplier) {
	i.SupplierID = supplier.ID
	i.Supplier = supplier
	i.Touch()
}
