package transaction

import (
	"fmt"
	"sync/atomic"
)

var idCounter int64

// ID uniquely names a transaction for the lifetime of the process. IDs are
// assigned monotonically and never reused, so a registry keyed by ID can
// double as an audit trail (see DESIGN.md, "txn_map lifetime").
type ID int64

// NextID allocates the next process-wide unique transaction id.
func NextID() ID {
	return ID(atomic.AddInt64(&idCounter, 1))
}

func (id ID) String() string {
	return fmt.Sprintf("txn-%d", int64(id))
}
