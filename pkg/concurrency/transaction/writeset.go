package transaction

import "txcore/pkg/primitives"

// WriteOp tags the kind of mutation a WriteRecord describes.
type WriteOp int

const (
	OpInsertTuple WriteOp = iota
	OpDeleteTuple
	OpUpdateTuple
)

func (op WriteOp) String() string {
	switch op {
	case OpInsertTuple:
		return "INSERT_TUPLE"
	case OpDeleteTuple:
		return "DELETE_TUPLE"
	case OpUpdateTuple:
		return "UPDATE_TUPLE"
	default:
		return "UNKNOWN"
	}
}

// WriteRecord is one entry in a transaction's write-set: enough
// information for abort to drive the inverse action against the record
// file and its secondary indexes.
//
//   - INSERT_TUPLE: Table and RID name the inserted row. PreImage is nil —
//     there is nothing to restore, the inverse is a delete.
//   - DELETE_TUPLE: PreImage holds the row's bytes before the delete. RID
//     names where it used to live (not used by the inverse action; the
//     inverse insert gets a fresh RID from the heap).
//   - UPDATE_TUPLE: RID names the row's current (post-image) location.
//     PreImage holds the row's bytes before the update.
type WriteRecord struct {
	Op       WriteOp
	Table    string
	RID      primitives.RID
	PreImage []byte
}

// NewInsertRecord records an INSERT_TUPLE write.
func NewInsertRecord(table string, rid primitives.RID) WriteRecord {
	return WriteRecord{Op: OpInsertTuple, Table: table, RID: rid}
}

// NewDeleteRecord records a DELETE_TUPLE write; preImage is the row's bytes
// immediately before the delete.
func NewDeleteRecord(table string, rid primitives.RID, preImage []byte) WriteRecord {
	return WriteRecord{Op: OpDeleteTuple, Table: table, RID: rid, PreImage: preImage}
}

// NewUpdateRecord records an UPDATE_TUPLE write; rid is the row's
// post-image location and preImage is its bytes before the update.
func NewUpdateRecord(table string, rid primitives.RID, preImage []byte) WriteRecord {
	return WriteRecord{Op: OpUpdateTuple, Table: table, RID: rid, PreImage: preImage}
}
