package txnmgr

import (
	"sync"

	"txcore/pkg/concurrency/transaction"
)

// registry is the process-global txn_map: every transaction ever begun,
// keyed by id. Entries are never evicted — terminal transactions stay in
// the map so it doubles as an audit trail of every transaction the process
// has ever run (see DESIGN.md, "txn_map lifetime", for why this core keeps
// that behavior rather than adding eviction).
type registry struct {
	mu   sync.Mutex
	txns map[transaction.ID]*transaction.Transaction
}

func newRegistry() *registry {
	return &registry{txns: make(map[transaction.ID]*transaction.Transaction)}
}

// txnMap is the single process-global registry every Manager registers into.
var txnMap = newRegistry()

func (r *registry) add(txn *transaction.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txns[txn.ID()] = txn
}

func (r *registry) get(id transaction.ID) (*transaction.Transaction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	txn, ok := r.txns[id]
	return txn, ok
}
