// Package txnmgr implements the transaction manager: begin/commit/abort
// lifecycle, and abort's index-aware rollback against the record-file and
// index collaborators named in collaborators.go. It sits above both
// pkg/concurrency/transaction and pkg/concurrency/lock: lock imports
// transaction, and transaction never imports lock.
package txnmgr

import (
	"fmt"
	"sync"

	"txcore/internal/dberr"
	"txcore/pkg/concurrency/lock"
	"txcore/pkg/concurrency/transaction"
	"txcore/pkg/logging"
)

// Manager drives transaction lifecycle. One Manager owns one lock.Manager,
// one catalog of record/index collaborators, and one log manager, and
// shares the process-wide transaction registry with every other Manager.
type Manager struct {
	mu       sync.Mutex
	locks    *lock.Manager
	catalog  Catalog
	logMgr   LogManager
	registry *registry
}

// New creates a transaction manager over the given lock manager and
// catalog. logMgr may be nil, in which case a no-op LogManager is used.
func New(locks *lock.Manager, catalog Catalog, logMgr LogManager) *Manager {
	if logMgr == nil {
		logMgr = NopLogManager{}
	}
	return &Manager{
		locks:    locks,
		catalog:  catalog,
		logMgr:   logMgr,
		registry: txnMap,
	}
}

// Begin allocates a new transaction (state DEFAULT), registers it in the
// process-global txn_map, and returns it. State remains DEFAULT until the
// caller's first lock acquisition moves it to GROWING.
func (m *Manager) Begin() *transaction.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn := transaction.New()
	m.registry.add(txn)
	logging.WithTxn(int64(txn.ID())).Debug("transaction began")
	return txn
}

// Lookup returns the transaction previously returned by Begin with the
// given id, if it is still registered.
func (m *Manager) Lookup(id transaction.ID) (*transaction.Transaction, bool) {
	return m.registry.get(id)
}

// Commit clears the transaction's write-set, releases every lock in its
// lock-set, clears the lock-set, and marks it COMMITTED.
func (m *Manager) Commit(txn *transaction.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn.ClearWriteSet()
	m.releaseAll(txn)
	txn.SetState(transaction.StateCommitted)

	if err := m.logMgr.Flush(); err != nil {
		logging.WithTxn(int64(txn.ID())).Warn("log flush failed on commit", "error", err.Error())
	}
	logging.WithTxn(int64(txn.ID())).Debug("transaction committed")
	return nil
}

// Abort replays the transaction's write-set from newest to oldest, driving
// the inverse of each recorded mutation against the record-file and index
// collaborators, then releases every lock in its lock-set and marks the
// transaction ABORTED.
func (m *Manager) Abort(txn *transaction.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	writes := txn.WriteSet()
	for i := len(writes) - 1; i >= 0; i-- {
		if err := m.undo(txn, writes[i]); err != nil {
			logging.WithTxn(int64(txn.ID())).Error("rollback step failed", "error", err.Error())
			return fmt.Errorf("abort rollback: %w", err)
		}
	}
	txn.ClearWriteSet()

	m.releaseAll(txn)
	txn.SetState(transaction.StateAborted)

	if err := m.logMgr.Flush(); err != nil {
		logging.WithTxn(int64(txn.ID())).Warn("log flush failed on abort", "error", err.Error())
	}
	logging.WithTxn(int64(txn.ID())).Debug("transaction aborted")
	return nil
}

// releaseAll releases every lock in txn's lock-set through the lock
// manager and clears the lock-set. Lock keys were recorded by the lock
// manager itself as lock.DataID values, so the assertion here always
// succeeds for entries this package's own lock manager produced.
func (m *Manager) releaseAll(txn *transaction.Transaction) {
	for _, entry := range txn.LockSet() {
		id, ok := entry.Key.(lock.DataID)
		if !ok {
			continue
		}
		if _, err := m.locks.Unlock(txn, id); err != nil {
			logging.WithTxn(int64(txn.ID())).Warn("unlock during release-all failed", "resource", id.String(), "error", err.Error())
		}
	}
	txn.ClearLockSet()
}

// undo applies the inverse of one write record against the record file and
// secondary indexes for its table.
func (m *Manager) undo(txn *transaction.Transaction, rec transaction.WriteRecord) error {
	file, err := m.catalog.RecordFile(rec.Table)
	if err != nil {
		return dberr.NewNotFound(int64(txn.ID()), rec.Table, fmt.Errorf("record file: %w", err))
	}
	indexes, err := m.catalog.Indexes(rec.Table)
	if err != nil {
		return dberr.NewNotFound(int64(txn.ID()), rec.Table, fmt.Errorf("indexes: %w", err))
	}

	switch rec.Op {
	case transaction.OpInsertTuple:
		return m.undoInsert(file, indexes, rec)
	case transaction.OpDeleteTuple:
		return m.undoDelete(file, indexes, rec)
	case transaction.OpUpdateTuple:
		return m.undoUpdate(file, indexes, rec)
	default:
		return fmt.Errorf("undo: unknown write op %v", rec.Op)
	}
}

// undoInsert inverts an INSERT_TUPLE: delete the record's index entries,
// then delete the record itself from the heap.
func (m *Manager) undoInsert(file RecordFile, indexes []IndexDescriptor, rec transaction.WriteRecord) error {
	current, err := file.GetRecord(rec.RID)
	if err != nil {
		return fmt.Errorf("read record at %s: %w", rec.RID, err)
	}
	for _, idx := range indexes {
		key := idx.ExtractKey(current)
		if err := idx.Handle.DeleteEntry(key); err != nil {
			return fmt.Errorf("delete index entry: %w", err)
		}
	}
	if err := file.DeleteRecord(rec.RID); err != nil {
		return fmt.Errorf("delete record at %s: %w", rec.RID, err)
	}
	return nil
}

// undoDelete inverts a DELETE_TUPLE: re-insert the pre-image into the heap
// at a new rid, then insert the reconstructed key into every index
// pointing at that new rid.
func (m *Manager) undoDelete(file RecordFile, indexes []IndexDescriptor, rec transaction.WriteRecord) error {
	newRID, err := file.InsertRecord(rec.PreImage)
	if err != nil {
		return fmt.Errorf("re-insert pre-image: %w", err)
	}
	for _, idx := range indexes {
		key := idx.ExtractKey(rec.PreImage)
		if err := idx.Handle.InsertEntry(key, newRID); err != nil {
			return fmt.Errorf("insert index entry: %w", err)
		}
	}
	return nil
}

// undoUpdate inverts an UPDATE_TUPLE: for every index, drop the post-image
// key and insert the pre-image key pointing at the same rid, then overwrite
// the heap record with the pre-image bytes.
func (m *Manager) undoUpdate(file RecordFile, indexes []IndexDescriptor, rec transaction.WriteRecord) error {
	postImage, err := file.GetRecord(rec.RID)
	if err != nil {
		return fmt.Errorf("read post-image at %s: %w", rec.RID, err)
	}
	for _, idx := range indexes {
		postKey := idx.ExtractKey(postImage)
		if err := idx.Handle.DeleteEntry(postKey); err != nil {
			return fmt.Errorf("delete post-image index entry: %w", err)
		}
		preKey := idx.ExtractKey(rec.PreImage)
		if err := idx.Handle.InsertEntry(preKey, rec.RID); err != nil {
			return fmt.Errorf("insert pre-image index entry: %w", err)
		}
	}
	if err := file.UpdateRecord(rec.RID, rec.PreImage); err != nil {
		return fmt.Errorf("restore pre-image at %s: %w", rec.RID, err)
	}
	return nil
}
