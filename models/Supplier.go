package models

// Supplier is the canonical source of supplier identity. Items embed a copy.
type Supplier struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Audit
}

func NewSupplier(name string) Supplier {
	return Supplier{ID: NewID(), Name: name, Audit: newAudit()}
}
