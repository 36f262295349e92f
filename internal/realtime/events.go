// Package realtime pushes property change triggers to connected owner clients.
package realtime

import "encoding/json"

// EventRefresh tells a client to refetch; it carries no row data.
const EventRefresh = "refresh"

// Change is the NOTIFY payload written by the notify_property_change trigger.
type Change struct {
	Table string `json:"table"`
	Op    string `json:"op"`
	ID    string `json:"id"`
}

// Event is the frame sent to websocket clients.
type Event struct {
	Type  string `json:"type"`
	Table string `json:"table"`
}

func encodeRefresh(table string) []byte {
	msg, _ := json.Marshal(Event{Type: EventRefresh, Table: table})
	return msg
}

// DefaultTables are the tables an owner feed subscribes to.
var DefaultTables = []string{"properties", "property_owners", "spaces", "assets"}
