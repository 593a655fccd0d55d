package model

import "time"

// StateEntry is one key/value pair in the shared persistence tier. It backs
// notification dedup timestamps and the settings snapshot; the two are
// logically independent but share the table.
type StateEntry struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}

// PushSubscription stores one web-push endpoint registration.
type PushSubscription struct {
	ID        string `gorm:"primaryKey"`
	Endpoint  string `gorm:"uniqueIndex"`
	P256dhKey string
	AuthKey   string
	CreatedAt time.Time
}
