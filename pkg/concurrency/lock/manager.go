package lock

import (
	"sync"

	"txcore/internal/dberr"
	"txcore/pkg/concurrency/transaction"
	"txcore/pkg/logging"
)

// Manager is the global lock table: a map from resource to request queue,
// guarded by a single mutex held for the full duration of every acquire or
// release. There is no blocking path — an acquire that cannot be granted
// immediately raises a deadlock-prevention error instead of waiting, so the
// mutex is never held across a suspension point.
type Manager struct {
	mu    sync.Mutex
	table map[DataID]*requestQueue
}

// NewManager returns an empty lock manager. The table is populated lazily:
// a queue is created the first time a resource is referenced and is never
// removed for the lifetime of the manager.
func NewManager() *Manager {
	return &Manager{table: make(map[DataID]*requestQueue)}
}

func (m *Manager) queueFor(id DataID) *requestQueue {
	q, ok := m.table[id]
	if !ok {
		q = newRequestQueue()
		m.table[id] = q
	}
	return q
}

// beginAcquire runs the common preamble shared by every acquire operation:
// it inspects the transaction's state and either clears it to proceed
// (transitioning DEFAULT -> GROWING) or returns the abort condition that
// must be raised to the caller. Terminal states are reported separately by
// the caller as a plain false, not as an error.
func beginAcquire(txn *transaction.Transaction, resource DataID) error {
	switch txn.State() {
	case transaction.StateDefault:
		txn.SetState(transaction.StateGrowing)
		return nil
	case transaction.StateGrowing:
		return nil
	case transaction.StateShrinking:
		return dberr.New(dberr.CategoryLockOnShrinking, int64(txn.ID()), resource.String(),
			"acquire attempted after the transaction began releasing locks")
	default: // COMMITTED, ABORTED
		return dberr.New(dberr.CategoryTerminalState, int64(txn.ID()), resource.String(),
			"acquire attempted on a transaction that is already committed or aborted")
	}
}

func deadlockPrevention(txn *transaction.Transaction, resource DataID, message string) error {
	return dberr.New(dberr.CategoryDeadlockPrevention, int64(txn.ID()), resource.String(), message)
}

func isTerminal(txn *transaction.Transaction) bool {
	return txn.State() == transaction.StateCommitted || txn.State() == transaction.StateAborted
}

// grant records a successful acquire and adds id to the transaction's
// lock-set at the given mode.
func grant(txn *transaction.Transaction, id DataID, mode Mode) {
	txn.RecordLock(id, int(mode))
}

// LockSharedOnRecord acquires S on a single record.
func (m *Manager) LockSharedOnRecord(txn *transaction.Transaction, rec DataID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isTerminal(txn) {
		return false, nil
	}
	if err := beginAcquire(txn, rec); err != nil {
		return false, err
	}

	q := m.queueFor(rec)
	if i := q.find(txn.ID()); i >= 0 {
		// Re-entrancy: any existing request (S or stronger) trivially
		// satisfies a fresh S request; the existing grant stands as is.
		grant(txn, rec, q.requests[i].mode)
		logging.WithLock(int64(txn.ID()), rec.String()).Debug("lock granted (re-entrant)", "mode", "S")
		return true, nil
	}

	// Defensive: record-level IX/SIX is never produced by this manager, but
	// the fresh-request check still refuses them if ever present.
	if q.groupMode == GroupIX || q.groupMode == GroupX || q.groupMode == GroupSIX {
		return false, deadlockPrevention(txn, rec, "S on record incompatible with group mode " + q.groupMode.String())
	}

	q.append(txn.ID(), Shared)
	grant(txn, rec, Shared)
	logging.WithLock(int64(txn.ID()), rec.String()).Debug("lock granted", "mode", "S")
	return true, nil
}

// LockExclusiveOnRecord acquires X on a single record.
func (m *Manager) LockExclusiveOnRecord(txn *transaction.Transaction, rec DataID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isTerminal(txn) {
		return false, nil
	}
	if err := beginAcquire(txn, rec); err != nil {
		return false, err
	}

	q := m.queueFor(rec)
	if i := q.find(txn.ID()); i >= 0 {
		switch q.requests[i].mode {
		case Exclusive:
			grant(txn, rec, Exclusive)
			return true, nil
		case Shared:
			if len(q.requests) != 1 {
				return false, deadlockPrevention(txn, rec, "X upgrade on record refused: other holders present")
			}
			q.upgrade(i, Exclusive)
			grant(txn, rec, Exclusive)
			logging.WithLock(int64(txn.ID()), rec.String()).Debug("lock upgraded", "mode", "X")
			return true, nil
		default:
			return false, deadlockPrevention(txn, rec, "X upgrade on record refused from mode " + q.requests[i].mode.String())
		}
	}

	if q.groupMode != GroupNone {
		return false, deadlockPrevention(txn, rec, "X on record incompatible with group mode " + q.groupMode.String())
	}

	q.append(txn.ID(), Exclusive)
	grant(txn, rec, Exclusive)
	logging.WithLock(int64(txn.ID()), rec.String()).Debug("lock granted", "mode", "X")
	return true, nil
}

// LockISOnTable acquires IS on a table.
func (m *Manager) LockISOnTable(txn *transaction.Transaction, table DataID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isTerminal(txn) {
		return false, nil
	}
	if err := beginAcquire(txn, table); err != nil {
		return false, err
	}

	q := m.queueFor(table)
	if i := q.find(txn.ID()); i >= 0 {
		grant(txn, table, q.requests[i].mode)
		return true, nil
	}

	if q.groupMode == GroupX {
		return false, deadlockPrevention(txn, table, "IS on table incompatible with group mode X")
	}

	q.append(txn.ID(), IntentionShared)
	grant(txn, table, IntentionShared)
	logging.WithLock(int64(txn.ID()), table.String()).Debug("lock granted", "mode", "IS")
	return true, nil
}

// LockIXOnTable acquires IX on a table.
func (m *Manager) LockIXOnTable(txn *transaction.Transaction, table DataID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isTerminal(txn) {
		return false, nil
	}
	if err := beginAcquire(txn, table); err != nil {
		return false, err
	}

	q := m.queueFor(table)
	if i := q.find(txn.ID()); i >= 0 {
		switch q.requests[i].mode {
		case IntentionExclusive, Exclusive, SharedIntentionExclusive:
			grant(txn, table, q.requests[i].mode)
			return true, nil
		case IntentionShared:
			if q.groupMode == GroupIS || q.groupMode == GroupIX {
				q.upgrade(i, IntentionExclusive)
				grant(txn, table, IntentionExclusive)
				logging.WithLock(int64(txn.ID()), table.String()).Debug("lock upgraded", "mode", "IX")
				return true, nil
			}
			return false, deadlockPrevention(txn, table, "IX upgrade from IS refused: group mode " + q.groupMode.String())
		case Shared:
			if q.sCount == 1 {
				q.upgrade(i, SharedIntentionExclusive)
				grant(txn, table, SharedIntentionExclusive)
				logging.WithLock(int64(txn.ID()), table.String()).Debug("lock upgraded", "mode", "SIX")
				return true, nil
			}
			return false, deadlockPrevention(txn, table, "IX upgrade from S refused: other S holders present")
		default:
			return false, deadlockPrevention(txn, table, "IX upgrade refused from mode " + q.requests[i].mode.String())
		}
	}

	if q.groupMode == GroupS || q.groupMode == GroupX || q.groupMode == GroupSIX {
		return false, deadlockPrevention(txn, table, "IX on table incompatible with group mode " + q.groupMode.String())
	}

	q.append(txn.ID(), IntentionExclusive)
	grant(txn, table, IntentionExclusive)
	logging.WithLock(int64(txn.ID()), table.String()).Debug("lock granted", "mode", "IX")
	return true, nil
}

// LockSharedOnTable acquires S on a table.
func (m *Manager) LockSharedOnTable(txn *transaction.Transaction, table DataID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isTerminal(txn) {
		return false, nil
	}
	if err := beginAcquire(txn, table); err != nil {
		return false, err
	}

	q := m.queueFor(table)
	if i := q.find(txn.ID()); i >= 0 {
		switch q.requests[i].mode {
		case Shared, Exclusive, SharedIntentionExclusive:
			grant(txn, table, q.requests[i].mode)
			return true, nil
		case IntentionShared:
			if q.groupMode == GroupS || q.groupMode == GroupIS {
				q.upgrade(i, Shared)
				grant(txn, table, Shared)
				logging.WithLock(int64(txn.ID()), table.String()).Debug("lock upgraded", "mode", "S")
				return true, nil
			}
			return false, deadlockPrevention(txn, table, "S upgrade from IS refused: group mode " + q.groupMode.String())
		case IntentionExclusive:
			if q.ixCount == 1 {
				q.upgrade(i, SharedIntentionExclusive)
				grant(txn, table, SharedIntentionExclusive)
				logging.WithLock(int64(txn.ID()), table.String()).Debug("lock upgraded", "mode", "SIX")
				return true, nil
			}
			return false, deadlockPrevention(txn, table, "S upgrade from IX refused: other IX holders present")
		default:
			return false, deadlockPrevention(txn, table, "S upgrade refused from mode " + q.requests[i].mode.String())
		}
	}

	if q.groupMode == GroupIX || q.groupMode == GroupX || q.groupMode == GroupSIX {
		return false, deadlockPrevention(txn, table, "S on table incompatible with group mode " + q.groupMode.String())
	}

	q.append(txn.ID(), Shared)
	grant(txn, table, Shared)
	logging.WithLock(int64(txn.ID()), table.String()).Debug("lock granted", "mode", "S")
	return true, nil
}

// LockExclusiveOnTable acquires X on a table.
func (m *Manager) LockExclusiveOnTable(txn *transaction.Transaction, table DataID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isTerminal(txn) {
		return false, nil
	}
	if err := beginAcquire(txn, table); err != nil {
		return false, err
	}

	q := m.queueFor(table)
	if i := q.find(txn.ID()); i >= 0 {
		if q.requests[i].mode == Exclusive {
			grant(txn, table, Exclusive)
			return true, nil
		}
		if len(q.requests) == 1 {
			q.upgrade(i, Exclusive)
			grant(txn, table, Exclusive)
			logging.WithLock(int64(txn.ID()), table.String()).Debug("lock upgraded", "mode", "X")
			return true, nil
		}
		return false, deadlockPrevention(txn, table, "X upgrade on table refused: other holders present")
	}

	if q.groupMode != GroupNone {
		return false, deadlockPrevention(txn, table, "X on table incompatible with group mode " + q.groupMode.String())
	}

	q.append(txn.ID(), Exclusive)
	grant(txn, table, Exclusive)
	logging.WithLock(int64(txn.ID()), table.String()).Debug("lock granted", "mode", "X")
	return true, nil
}

// Unlock releases id on behalf of txn. It is a no-op success if the
// resource is unknown or the transaction holds no request on it. The first
// successful unlock for a GROWING transaction transitions it to SHRINKING.
func (m *Manager) Unlock(txn *transaction.Transaction, id DataID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch txn.State() {
	case transaction.StateCommitted, transaction.StateAborted:
		return false, nil
	case transaction.StateGrowing:
		txn.SetState(transaction.StateShrinking)
	}

	q, ok := m.table[id]
	if !ok {
		return true, nil
	}

	i := q.find(txn.ID())
	if i < 0 {
		return true, nil
	}

	q.remove(i)
	txn.ForgetLock(id)
	logging.WithLock(int64(txn.ID()), id.String()).Debug("lock released")
	return true, nil
}
