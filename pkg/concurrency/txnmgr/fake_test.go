package txnmgr

import (
	"fmt"
	"sync"

	"txcore/pkg/primitives"
)

// fakeRecordFile is an in-memory heap: just enough behavior to drive and
// verify rollback without a real heap file.
type fakeRecordFile struct {
	mu      sync.Mutex
	records map[primitives.RID][]byte
	nextSeq uint32
}

func newFakeRecordFile() *fakeRecordFile {
	return &fakeRecordFile{records: make(map[primitives.RID][]byte)}
}

func (f *fakeRecordFile) GetRecord(rid primitives.RID) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[rid]
	if !ok {
		return nil, fmt.Errorf("no record at %s", rid)
	}
	out := make([]byte, len(rec))
	copy(out, rec)
	return out, nil
}

func (f *fakeRecordFile) InsertRecord(data []byte) (primitives.RID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rid := primitives.NewRID(0, primitives.SlotID(f.nextSeq))
	f.nextSeq++
	stored := make([]byte, len(data))
	copy(stored, data)
	f.records[rid] = stored
	return rid, nil
}

func (f *fakeRecordFile) DeleteRecord(rid primitives.RID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[rid]; !ok {
		return fmt.Errorf("no record at %s", rid)
	}
	delete(f.records, rid)
	return nil
}

func (f *fakeRecordFile) UpdateRecord(rid primitives.RID, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[rid]; !ok {
		return fmt.Errorf("no record at %s", rid)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	f.records[rid] = stored
	return nil
}

// fakeIndex is an in-memory secondary index: key bytes to rid.
type fakeIndex struct {
	mu      sync.Mutex
	entries map[string]primitives.RID
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{entries: make(map[string]primitives.RID)}
}

func (idx *fakeIndex) InsertEntry(key []byte, rid primitives.RID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[string(key)] = rid
	return nil
}

func (idx *fakeIndex) DeleteEntry(key []byte) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, string(key))
	return nil
}

func (idx *fakeIndex) has(key []byte) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, ok := idx.entries[string(key)]
	return ok
}

func (idx *fakeIndex) len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.entries)
}

// fakeCatalog maps a single table name to one record file and its indexes.
type fakeCatalog struct {
	table   string
	file    *fakeRecordFile
	indexes []IndexDescriptor
}

func newFakeCatalog(table string, file *fakeRecordFile, indexes []IndexDescriptor) *fakeCatalog {
	return &fakeCatalog{table: table, file: file, indexes: indexes}
}

func (c *fakeCatalog) RecordFile(table string) (RecordFile, error) {
	if table != c.table {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return c.file, nil
}

func (c *fakeCatalog) Indexes(table string) ([]IndexDescriptor, error) {
	if table != c.table {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return c.indexes, nil
}
