package transaction

import (
	"fmt"
	"sync"
	"time"
)

// LockEntry records one lock a transaction currently holds, so that commit
// and abort can release the full lock-set without the transaction manager
// having to ask the lock manager to enumerate it separately. Key is
// whatever the lock package's resource identifier value is (it implements
// fmt.Stringer); this package never looks inside it, which is what lets
// transaction avoid importing lock.
type LockEntry struct {
	Key  fmt.Stringer
	Mode int
}

// Transaction is the unit of work a client opens, mutates data under, and
// eventually commits or aborts. It carries exactly the state the lock
// manager and transaction manager need: an id, a 2PL state, the set of
// locks currently held, and the ordered write-set used to drive rollback.
//
// A Transaction's fields are guarded by its own mutex because the lock
// manager touches State and the lock-set from whichever goroutine is
// acquiring or releasing a lock on this transaction's behalf, while the
// transaction manager touches the write-set from the goroutine running the
// client's statements. Both can race in a concurrent workload.
type Transaction struct {
	mu sync.Mutex

	id        ID
	state     State
	startedAt time.Time

	lockSet   map[string]LockEntry
	writeSet  []WriteRecord
}

// New creates a transaction in StateDefault with an empty lock-set and
// write-set.
func New() *Transaction {
	return &Transaction{
		id:        NextID(),
		state:     StateDefault,
		startedAt: time.Now(),
		lockSet:   make(map[string]LockEntry),
	}
}

// ID returns the transaction's immutable identifier.
func (t *Transaction) ID() ID {
	return t.id
}

// State returns the transaction's current 2PL state.
func (t *Transaction) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetState sets the transaction's state. Callers (the lock manager, the
// transaction manager) are responsible for only making legal transitions;
// SetState itself does not validate the transition, leaving that to the
// caller that owns the decision (see pkg/concurrency/lock for the
// growing/shrinking gate).
func (t *Transaction) SetState(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

// Duration reports how long the transaction has been open.
func (t *Transaction) Duration() time.Duration {
	return time.Since(t.startedAt)
}

// RecordLock adds key/mode to the transaction's lock-set, keyed by key's
// string form. Calling it again for a resource already present overwrites
// the stored mode, which is what an upgrade (e.g. S -> X) requires.
func (t *Transaction) RecordLock(key fmt.Stringer, mode int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lockSet[key.String()] = LockEntry{Key: key, Mode: mode}
}

// ForgetLock removes key from the transaction's lock-set.
func (t *Transaction) ForgetLock(key fmt.Stringer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lockSet, key.String())
}

// HoldsLock reports whether the transaction's lock-set currently contains
// key, and if so, at what mode.
func (t *Transaction) HoldsLock(key fmt.Stringer) (mode int, held bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.lockSet[key.String()]
	return entry.Mode, ok
}

// LockSet returns a snapshot of the transaction's held locks. The caller
// owns the returned slice; mutating it has no effect on the transaction.
func (t *Transaction) LockSet() []LockEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]LockEntry, 0, len(t.lockSet))
	for _, entry := range t.lockSet {
		out = append(out, entry)
	}
	return out
}

// AppendWrite appends a write record to the end of the write-set. Whoever
// performs an INSERT_TUPLE, DELETE_TUPLE, or UPDATE_TUPLE on the
// transaction's behalf calls this once per mutation; the transaction
// manager only reads and clears the write-set.
func (t *Transaction) AppendWrite(rec WriteRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeSet = append(t.writeSet, rec)
}

// WriteSet returns a snapshot of the transaction's write-set in the order
// the writes were appended. Abort replays this slice in reverse (LIFO) to
// compute each write's inverse action.
func (t *Transaction) WriteSet() []WriteRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]WriteRecord, len(t.writeSet))
	copy(out, t.writeSet)
	return out
}

// ClearWriteSet empties the write-set. Commit calls this because committed
// writes are already durable in the record/index collaborators; abort
// calls this once the write-set has been fully replayed.
func (t *Transaction) ClearWriteSet() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeSet = nil
}

// ClearLockSet empties the lock-set. Commit and abort call this after
// releasing every lock it names through the lock manager.
func (t *Transaction) ClearLockSet() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lockSet = make(map[string]LockEntry)
}

// String renders the transaction's id and state for logging.
func (t *Transaction) String() string {
	return t.id.String() + "[" + t.State().String() + "]"
}
