package pipeline

import (
	"sync"

	"github.com/suicapindexer/indexer/internal/chain"
)

// checkpointQueue is an unbounded FIFO of checkpoints feeding a single
// handler. It exists so that a handler stalled on repeated commit
// failures never blocks the dispatch of checkpoints to any other
// handler — the dispatcher only ever appends, it never blocks on a slow
// consumer.
type checkpointQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*chain.Checkpoint
	closed bool
}

func newCheckpointQueue() *checkpointQueue {
	q := &checkpointQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *checkpointQueue) push(c *chain.Checkpoint) {
	q.mu.Lock()
	q.items = append(q.items, c)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *checkpointQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// pop blocks until a checkpoint is available or the queue is closed and
// drained, in which case ok is false.
func (q *checkpointQueue) pop() (c *chain.Checkpoint, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	c = q.items[0]
	q.items = q.items[1:]
	return c, true
}

func (q *checkpointQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
