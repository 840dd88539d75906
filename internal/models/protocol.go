package models

import (
	"encoding/json"
	"time"
)

// InspectionEvent is the wire format for inspection change events on JetStream.
type InspectionEvent struct {
	V            int    `msgpack:"v"`
	ID           string `msgpack:"id"`
	TS           int64  `msgpack:"ts"`
	Action       string `msgpack:"action"`
	InspectionID int64  `msgpack:"inspection_id"`
	Actor        string `msgpack:"actor"`
	// Snapshot is the JSON encoding of the record after the change (before it, for deletes).
	Snapshot []byte `msgpack:"snapshot"`
}

// LiveUpdate is what websocket clients receive for every applied event.
type LiveUpdate struct {
	Action       string `json:"action"`
	InspectionID int64  `json:"inspection_id"`
	Actor        string `json:"actor"`
	TS           int64  `json:"ts"`
}

func (e *InspectionEvent) LiveUpdate() LiveUpdate {
	return LiveUpdate{Action: e.Action, InspectionID: e.InspectionID, Actor: e.Actor, TS: e.TS}
}

// Inspection decodes the snapshot. It returns nil when the snapshot is absent or invalid.
func (e *InspectionEvent) Inspection() *Inspection {
	if len(e.Snapshot) == 0 {
		return nil
	}
	var rec Inspection
	if err := json.Unmarshal(e.Snapshot, &rec); err != nil {
		return nil
	}
	return &rec
}

func (e *InspectionEvent) Time() time.Time {
	return time.UnixMilli(e.TS)
}
