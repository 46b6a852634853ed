// Package primitives holds the small, comparable value types shared across
// the lock and transaction managers, so that neither has to import the
// other just to name a resource.
package primitives

import "fmt"

// TableID is an opaque, process-wide identifier for a table or file. The
// core never interprets its bits; it is whatever the catalog collaborator
// hands back for a table name.
type TableID int64

// PageNumber identifies a page within a table's heap file.
type PageNumber uint64

// SlotID identifies a tuple's slot within a page.
type SlotID uint32

// LSN is a log sequence number. No code in this core uses it; the
// log-manager collaborator's Flush takes no LSN.
type LSN uint64

// RID (record identifier) names one tuple's location: a page number and a
// slot within that page. It is a value type, comparable and hashable via
// normal struct equality.
type RID struct {
	Page PageNumber
	Slot SlotID
}

// NewRID constructs a RID from a page number and slot.
func NewRID(page PageNumber, slot SlotID) RID {
	return RID{Page: page, Slot: slot}
}

func (r RID) String() string {
	return fmt.Sprintf("RID(page=%d,slot=%d)", r.Page, r.Slot)
}
