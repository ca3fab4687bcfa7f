package domain

import "time"

// Idempotency records the outcome of a completed checkout keyed by
// (profile_id, scope, key). A retried request carrying the same
// Idempotency-Key is answered from Response instead of running the order
// processor again.
type Idempotency struct {
	ID        string    `gorm:"type:varchar(36);not null;primaryKey"`
	ProfileID string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_profile_scope_key,priority:1"`
	Scope     string    `gorm:"type:varchar(32);not null;uniqueIndex:ux_profile_scope_key,priority:2"`
	Key       string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_profile_scope_key,priority:3"`
	OrderID   string    `gorm:"type:varchar(64);not null"`
	Status    int       `gorm:"not null"`
	Response  string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
