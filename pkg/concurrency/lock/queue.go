package lock

import "txcore/pkg/concurrency/transaction"

// request is one transaction's grant on a resource. Every request living in
// a queue is granted in this core — there is no blocked/pending state,
// since the manager never queues an incompatible request, it refuses it
// outright (no-wait).
type request struct {
	txnID transaction.ID
	mode  Mode
}

// requestQueue holds every granted request for one resource, in the order
// each was first granted, plus the aggregate bookkeeping the manager needs
// to decide compatibility without rescanning on every call.
type requestQueue struct {
	requests  []request
	groupMode GroupMode
	sCount    int // granted requests with mode Shared or SharedIntentionExclusive
	ixCount   int // granted requests with mode IntentionExclusive or SharedIntentionExclusive
}

func newRequestQueue() *requestQueue {
	return &requestQueue{groupMode: GroupNone}
}

// find returns the index of txnID's request in the queue, or -1.
func (q *requestQueue) find(txnID transaction.ID) int {
	for i := range q.requests {
		if q.requests[i].txnID == txnID {
			return i
		}
	}
	return -1
}

// append adds a freshly granted request and folds it into the group mode
// and counters. It does not check compatibility; callers decide that.
func (q *requestQueue) append(txnID transaction.ID, mode Mode) {
	q.requests = append(q.requests, request{txnID: txnID, mode: mode})
	q.groupMode = strongerOf(q.groupMode, groupModeOf(mode))
	q.bumpCounters(mode, 1)
}

// upgrade mutates the mode of txnID's existing request in place and folds
// the new mode into the group mode. The old mode's contribution to the
// counters is removed first.
func (q *requestQueue) upgrade(i int, newMode Mode) {
	old := q.requests[i].mode
	q.bumpCounters(old, -1)
	q.requests[i].mode = newMode
	q.bumpCounters(newMode, 1)
	q.groupMode = strongerOf(q.groupMode, groupModeOf(newMode))
}

// remove deletes the request at index i and recomputes the group mode by
// scanning what remains, per the release protocol: counters are
// decremented for the removed mode, then the group mode is derived fresh
// rather than tracked incrementally, since a removal can only ever weaken
// it and incremental tracking of "next strongest" would need the full
// per-mode histogram anyway.
func (q *requestQueue) remove(i int) {
	removed := q.requests[i].mode
	q.bumpCounters(removed, -1)
	q.requests = append(q.requests[:i], q.requests[i+1:]...)
	q.recomputeGroupMode()
}

func (q *requestQueue) recomputeGroupMode() {
	strongest := GroupNone
	for _, r := range q.requests {
		strongest = strongerOf(strongest, groupModeOf(r.mode))
	}
	q.groupMode = strongest
}

func (q *requestQueue) bumpCounters(mode Mode, delta int) {
	switch mode {
	case Shared:
		q.sCount += delta
	case SharedIntentionExclusive:
		q.sCount += delta
		q.ixCount += delta
	case IntentionExclusive:
		q.ixCount += delta
	}
}

func (q *requestQueue) empty() bool {
	return len(q.requests) == 0
}
