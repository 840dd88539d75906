package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// AuditEntry is one applied inspection change.
type AuditEntry struct {
	ID           int64     `json:"id" db:"id"`
	EventID      string    `json:"event_id" db:"event_id"`
	Action       string    `json:"action" db:"action"`
	InspectionID int64     `json:"inspection_id" db:"inspection_id"`
	Actor        string    `json:"actor" db:"actor"`
	Details      Snapshot  `json:"details,omitempty" db:"details"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Snapshot is a JSON document stored as raw bytes. It is embedded verbatim in
// JSON output and may be NULL in the database.
type Snapshot []byte

func (s Snapshot) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	if !json.Valid(s) {
		return nil, fmt.Errorf("snapshot is not valid JSON")
	}
	return s, nil
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}
	*s = append((*s)[:0], data...)
	return nil
}

func (s Snapshot) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return []byte(s), nil
}

func (s *Snapshot) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
	case []byte:
		*s = append(Snapshot(nil), v...)
	case string:
		*s = Snapshot(v)
	default:
		return fmt.Errorf("cannot scan %T into Snapshot", src)
	}
	return nil
}
