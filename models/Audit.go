package models

import (
	"time"

	"github.com/google/uuid"
)

// Now is the clock used for audit timestamps. Tests may replace it.
var Now = func() time.Time {
	return time.Now().UTC()
}

// Audit is the creation/last-modified pair carried by every document.
type Audit struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newAudit() Audit {
	now := Now()
	return Audit{CreatedAt: now, UpdatedAt: now}
}

// Touch marks the document as modified.
func (a *Audit) Touch() {
	a.UpdatedAt = Now()
}

// NewID returns a fresh random document identifier.
func NewID() string {
	return uuid.NewString()
}
