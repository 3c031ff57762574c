package realtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type EventType string

const (
	EventAll    EventType = "*"
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// subscribableTables are the tables with a row change trigger.
var subscribableTables = map[string]struct{}{
	"broadcasts":      {},
	"messages":        {},
	"sessions":        {},
	"session_members": {},
	"profiles":        {},
	"connections":     {},
}

func Subscribable(table string) bool {
	_, ok := subscribableTables[table]
	return ok
}

// ChangeEvent is a single row change as published by the notify_row_change
// trigger.
type ChangeEvent struct {
	Table           string         `json:"table"`
	Type            EventType      `json:"type"`
	Record          map[string]any `json:"record,omitempty"`
	OldRecord       map[string]any `json:"old_record,omitempty"`
	CommitTimestamp time.Time      `json:"commit_timestamp"`
}

func ParseChangeEvent(payload []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("decode change event: %w", err)
	}

	if ev.Table == "" {
		return ev, fmt.Errorf("change event without table")
	}

	switch ev.Type {
	case EventInsert, EventUpdate:
		if ev.Record == nil {
			return ev, fmt.Errorf("%s on %q without record", ev.Type, ev.Table)
		}
	case EventDelete:
		if ev.OldRecord == nil {
			return ev, fmt.Errorf("DELETE on %q without old record", ev.Table)
		}
	default:
		return ev, fmt.Errorf("unknown event type %q", ev.Type)
	}

	return ev, nil
}

// Row returns the record the event describes: the old row for deletes and the
// new row otherwise.
func (ev ChangeEvent) Row() map[string]any {
	if ev.Type == EventDelete {
		return ev.OldRecord
	}
	return ev.Record
}

// Value returns column of Row formatted as a string, or "" when absent or null.
func (ev ChangeEvent) Value(column string) string {
	return stringValue(ev.Row()[column])
}

func stringValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Conversation selects the direct messages exchanged by two users.
type Conversation struct {
	Self string
	Peer string
}

func (c Conversation) Matches(ev ChangeEvent) bool {
	if ev.Table != "messages" || ev.Value("session_id") != "" {
		return false
	}

	sender, receiver := ev.Value("sender_id"), ev.Value("receiver_id")
	return (sender == c.Self && receiver == c.Peer) || (sender == c.Peer && receiver == c.Self)
}
