// Package realtime carries row-level change notifications from the record
// store to subscribers and keeps a local candidate cache reconciled with them.
package realtime

import (
	"context"
	"encoding/json"
)

// ChangeType is the kind of row change.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// Change is one notification. Delivery is at-least-once: subscribers must
// tolerate duplicates and reordering.
type Change struct {
	Table  string          `json:"table"`
	Type   ChangeType      `json:"type"`
	RowID  string          `json:"rowId"`
	NewRow json.RawMessage `json:"newRow,omitempty"`
	OldRow json.RawMessage `json:"oldRow,omitempty"`
}

// Bus fans changes out to subscribers of a table.
type Bus interface {
	Publish(ctx context.Context, change Change) error
	// Subscribe registers fn for changes on table ("*" for every table) until
	// ctx is cancelled.
	Subscribe(ctx context.Context, table string, fn func(Change)) error
	Close() error
}

// NewChange builds a Change, encoding rows as JSON. Encoding failures leave
// the row empty; subscribers fall back to refetching.
func NewChange(table string, typ ChangeType, rowID string, newRow, oldRow any) Change {
	c := Change{Table: table, Type: typ, RowID: rowID}
	if newRow != nil {
		if raw, err := json.Marshal(newRow); err == nil {
			c.NewRow = raw
		}
	}
	if oldRow != nil {
		if raw, err := json.Marshal(oldRow); err == nil {
			c.OldRow = raw
		}
	}
	return c
}
