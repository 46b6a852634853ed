package txnmgr

import "txcore/pkg/primitives"

// RecordFile is the heap-file collaborator for one table. The transaction
// manager never interprets record bytes itself; it only routes them
// between the write-set and whichever RecordFile the caller registered for
// a table, identified by name in the catalog.
type RecordFile interface {
	GetRecord(rid primitives.RID) ([]byte, error)
	InsertRecord(data []byte) (primitives.RID, error)
	DeleteRecord(rid primitives.RID) error
	UpdateRecord(rid primitives.RID, data []byte) error
}

// IndexHandle is the secondary-index collaborator for one (table, indexed
// columns) pair.
type IndexHandle interface {
	InsertEntry(key []byte, rid primitives.RID) error
	DeleteEntry(key []byte) error
}

// IndexDescriptor names one secondary index on a table: the column offsets
// and lengths that make up its key, in declared order, plus the handle
// abort drives insert/delete calls against.
type IndexDescriptor struct {
	Columns []ColumnSpan
	Handle  IndexHandle
}

// ColumnSpan names one column's byte range within a record's encoded form.
type ColumnSpan struct {
	Offset int
	Length int
}

// KeyLength is the sum of the descriptor's column lengths: the size of the
// key reconstructed from a record's bytes for this index.
func (d IndexDescriptor) KeyLength() int {
	total := 0
	for _, c := range d.Columns {
		total += c.Length
	}
	return total
}

// ExtractKey concatenates the bytes of each indexed column from record, in
// declared order, into a freshly allocated buffer sized to KeyLength.
func (d IndexDescriptor) ExtractKey(record []byte) []byte {
	key := make([]byte, d.KeyLength())
	pos := 0
	for _, c := range d.Columns {
		copy(key[pos:pos+c.Length], record[c.Offset:c.Offset+c.Length])
		pos += c.Length
	}
	return key
}

// Catalog maps a table name to its record file and the secondary indexes
// that must be kept consistent with every heap mutation.
type Catalog interface {
	RecordFile(table string) (RecordFile, error)
	Indexes(table string) ([]IndexDescriptor, error)
}

// LogManager is the durability collaborator invoked at commit/abort. This
// core treats it purely as a flush call site; no log record format is
// specified here.
type LogManager interface {
	Flush() error
}

// NopLogManager is a LogManager that performs no durability work. It is the
// default used by [New] when the caller has no log manager wired up yet.
type NopLogManager struct{}

// Flush implements LogManager by doing nothing.
func (NopLogManager) Flush() error { return nil }
