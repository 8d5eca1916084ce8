package models

import "time"

// ProcessingRecord is the idempotency ledger for inbound payment events.
// Existence of a row for event_id means the event completed processing and
// must not be re-run. Rows are written only after the handler finished, so a
// crash in between leaves no row; the re-delivered event then re-runs the
// (idempotent) transition guard instead.
// Unique constraint: event_id.
type ProcessingRecord struct {
	ID         int       `gorm:"primary_key" json:"id"`
	EventId    string    `gorm:"size:255;not null;uniqueIndex" json:"event_id"`
	Action     string    `gorm:"size:50;not null" json:"action"`
	EventType  string    `gorm:"size:100;not null" json:"event_type"`
	RecordedAt time.Time `gorm:"autoCreateTime" json:"recorded_at"`
}
