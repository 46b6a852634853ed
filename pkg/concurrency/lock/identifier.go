package lock

import (
	"fmt"

	"txcore/pkg/primitives"
)

// Granularity names the level a lock identifier addresses.
type Granularity int

const (
	GranularityTable Granularity = iota
	GranularityRecord
)

func (g Granularity) String() string {
	if g == GranularityRecord {
		return "RECORD"
	}
	return "TABLE"
}

// DataID uniquely names a lockable resource: a table, or a single record
// within a table. It is a plain value type — comparable, and usable
// directly as a map key — so two DataIDs naming the same resource always
// compare equal regardless of where they were constructed.
type DataID struct {
	Table       primitives.TableID
	Granularity Granularity
	RID         primitives.RID // only meaningful when Granularity == GranularityRecord
}

// TableLock builds a DataID addressing an entire table.
func TableLock(table primitives.TableID) DataID {
	return DataID{Table: table, Granularity: GranularityTable}
}

// RecordLock builds a DataID addressing a single record within a table.
func RecordLock(table primitives.TableID, rid primitives.RID) DataID {
	return DataID{Table: table, Granularity: GranularityRecord, RID: rid}
}

func (d DataID) String() string {
	if d.Granularity == GranularityRecord {
		return fmt.Sprintf("DataID(table=%d,%s)", d.Table, d.RID)
	}
	return fmt.Sprintf("DataID(table=%d,TABLE)", d.Table)
}
