package lock

import (
	"errors"
	"testing"

	"txcore/internal/dberr"
	"txcore/pkg/concurrency/transaction"
	"txcore/pkg/primitives"
)

func TestNewManager(t *testing.T) {
	m := NewManager()
	if m == nil {
		t.Fatal("NewManager() returned nil")
	}
	if m.table == nil {
		t.Error("table not initialized")
	}
}

func TestLockISThenUpgradeToS(t *testing.T) {
	m := NewManager()
	txn := transaction.New()
	table := TableLock(1)

	ok, err := m.LockISOnTable(txn, table)
	if err != nil || !ok {
		t.Fatalf("LockISOnTable() = (%v, %v), want (true, nil)", ok, err)
	}
	q := m.table[table]
	if q.groupMode != GroupIS {
		t.Errorf("group mode = %v, want IS", q.groupMode)
	}

	ok, err = m.LockSharedOnTable(txn, table)
	if err != nil || !ok {
		t.Fatalf("LockSharedOnTable() upgrade = (%v, %v), want (true, nil)", ok, err)
	}
	if q.groupMode != GroupS {
		t.Errorf("group mode after upgrade = %v, want S", q.groupMode)
	}
	if q.sCount != 1 {
		t.Errorf("sCount = %d, want 1", q.sCount)
	}
}

func TestWriterBlocksReaderUnderNoWait(t *testing.T) {
	m := NewManager()
	t1 := transaction.New()
	t2 := transaction.New()
	rec := RecordLock(1, primitives.NewRID(1, 0))

	ok, err := m.LockExclusiveOnRecord(t1, rec)
	if err != nil || !ok {
		t.Fatalf("t1 X on record = (%v, %v), want (true, nil)", ok, err)
	}

	ok, err = m.LockSharedOnRecord(t2, rec)
	if ok {
		t.Fatalf("t2 S on record succeeded, want refusal")
	}
	if !errors.Is(err, dberr.DeadlockPrevention) {
		t.Fatalf("err = %v, want deadlock-prevention", err)
	}

	q := m.table[rec]
	if q.find(t2.ID()) != -1 {
		t.Error("refused request was appended to the queue")
	}
}

func TestIXPlusSingleSHolderUpgradesToSIX(t *testing.T) {
	m := NewManager()
	txn := transaction.New()
	table := TableLock(2)

	if ok, err := m.LockSharedOnTable(txn, table); err != nil || !ok {
		t.Fatalf("S on table = (%v, %v)", ok, err)
	}
	ok, err := m.LockIXOnTable(txn, table)
	if err != nil || !ok {
		t.Fatalf("IX upgrade = (%v, %v), want (true, nil)", ok, err)
	}

	q := m.table[table]
	if q.groupMode != GroupSIX {
		t.Errorf("group mode = %v, want SIX", q.groupMode)
	}
	if q.sCount != 1 || q.ixCount != 1 {
		t.Errorf("sCount=%d ixCount=%d, want 1,1", q.sCount, q.ixCount)
	}
}

func TestIllegalUpgradeWithTwoSHolders(t *testing.T) {
	m := NewManager()
	t1 := transaction.New()
	t2 := transaction.New()
	table := TableLock(3)

	if ok, err := m.LockSharedOnTable(t1, table); err != nil || !ok {
		t.Fatalf("t1 S on table = (%v, %v)", ok, err)
	}
	if ok, err := m.LockSharedOnTable(t2, table); err != nil || !ok {
		t.Fatalf("t2 S on table = (%v, %v)", ok, err)
	}

	ok, err := m.LockIXOnTable(t1, table)
	if ok {
		t.Fatal("IX upgrade succeeded with two S holders present")
	}
	if !errors.Is(err, dberr.DeadlockPrevention) {
		t.Fatalf("err = %v, want deadlock-prevention", err)
	}
}

func Test2PLViolationAfterUnlock(t *testing.T) {
	m := NewManager()
	txn := transaction.New()
	rec := RecordLock(4, primitives.NewRID(1, 0))

	if ok, err := m.LockSharedOnRecord(txn, rec); err != nil || !ok {
		t.Fatalf("S on record = (%v, %v)", ok, err)
	}
	if ok, err := m.Unlock(txn, rec); err != nil || !ok {
		t.Fatalf("unlock = (%v, %v)", ok, err)
	}
	if txn.State() != transaction.StateShrinking {
		t.Fatalf("state after unlock = %v, want SHRINKING", txn.State())
	}

	ok, err := m.LockExclusiveOnRecord(txn, rec)
	if ok {
		t.Fatal("acquire after unlock succeeded, want lock-on-shrinking")
	}
	if !errors.Is(err, dberr.LockOnShrinking) {
		t.Fatalf("err = %v, want lock-on-shrinking", err)
	}
}

func TestTerminalStateRefusesSilently(t *testing.T) {
	m := NewManager()
	txn := transaction.New()
	table := TableLock(5)
	txn.SetState(transaction.StateCommitted)

	ok, err := m.LockSharedOnTable(txn, table)
	if ok {
		t.Fatal("acquire on committed transaction succeeded")
	}
	if err != nil {
		t.Fatalf("err = %v, want nil (terminal state is a plain false)", err)
	}
}

func TestCommitReleasesEveryLock(t *testing.T) {
	m := NewManager()
	txn := transaction.New()
	table := TableLock(6)
	rec := RecordLock(6, primitives.NewRID(2, 1))

	if ok, _ := m.LockIXOnTable(txn, table); !ok {
		t.Fatal("IX on table failed")
	}
	if ok, _ := m.LockExclusiveOnRecord(txn, rec); !ok {
		t.Fatal("X on record failed")
	}

	for _, entry := range txn.LockSet() {
		id := entry.Key.(DataID)
		if ok, err := m.Unlock(txn, id); err != nil || !ok {
			t.Fatalf("unlock(%v) = (%v, %v)", id, ok, err)
		}
	}

	if len(txn.LockSet()) != 0 {
		t.Error("lock-set not empty after releasing every entry")
	}
	if q := m.table[table]; !q.empty() {
		t.Error("table queue not empty after release")
	}
	if q := m.table[rec]; !q.empty() {
		t.Error("record queue not empty after release")
	}
}

func TestGroupModeRecomputationOnRelease(t *testing.T) {
	m := NewManager()
	t1 := transaction.New()
	t2 := transaction.New()
	rec := RecordLock(7, primitives.NewRID(0, 0))

	if ok, _ := m.LockSharedOnRecord(t1, rec); !ok {
		t.Fatal("t1 S failed")
	}
	if ok, _ := m.LockSharedOnRecord(t2, rec); !ok {
		t.Fatal("t2 S failed")
	}

	if ok, err := m.Unlock(t1, rec); err != nil || !ok {
		t.Fatalf("unlock t1 = (%v, %v)", ok, err)
	}

	q := m.table[rec]
	if q.groupMode != GroupS {
		t.Errorf("group mode after partial release = %v, want S (t2 still holds S)", q.groupMode)
	}
	if q.sCount != 1 {
		t.Errorf("sCount = %d, want 1", q.sCount)
	}
}
