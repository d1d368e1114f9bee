package cart

import (
	"context"
	"strings"
	"sync"
)

const (
	storeLocal  = "local"
	storeRemote = "remote"
)

// writeOp is one pending write against a backing store. key identifies the
// row (or snapshot) the op determines completely; a scoped op determines every
// key under its prefix.
type writeOp struct {
	ctx    context.Context
	store  string
	kind   string
	key    string
	scoped bool
	run    func(ctx context.Context) error
}

func (op writeOp) supersedes(pending writeOp) bool {
	if pending.key == op.key {
		return true
	}
	return op.scoped && strings.HasPrefix(pending.key, op.key+":")
}

// writeQueue runs writes for one session strictly in order. Pending writes
// that a newer write fully determines are dropped before they run.
type writeQueue struct {
	mu      sync.Mutex
	pending []writeOp
	running bool
	// done is closed when the running drain empties the queue.
	done chan struct{}
}

// push appends op and reports the ops it superseded. start is true when the
// caller must launch a drain goroutine.
func (q *writeQueue) push(op writeOp) (dropped []writeOp, start bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.pending[:0]
	for _, p := range q.pending {
		if op.supersedes(p) {
			dropped = append(dropped, p)
			continue
		}
		kept = append(kept, p)
	}
	q.pending = append(kept, op)

	if q.running {
		return dropped, false
	}
	q.running = true
	q.done = make(chan struct{})
	return dropped, true
}

// next pops the oldest op. It clears the running flag once the queue is empty.
func (q *writeQueue) next() (writeOp, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		q.running = false
		if q.done != nil {
			close(q.done)
			q.done = nil
		}
		return writeOp{}, false
	}
	op := q.pending[0]
	q.pending[0] = writeOp{}
	q.pending = q.pending[1:]
	return op, true
}

func (q *writeQueue) idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.running && len(q.pending) == 0
}

// wait blocks until every queued op has run or ctx is done.
func (q *writeQueue) wait(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	done := q.done
	q.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
