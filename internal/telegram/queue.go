package telegram

import "sync"

// userQueue runs jobs for the same user one at a time in arrival order.
// Jobs for different users run in parallel, one goroutine per busy user.
type userQueue struct {
	mu      sync.Mutex
	pending map[int64][]func()
	wg      sync.WaitGroup
}

func newUserQueue() *userQueue {
	return &userQueue{pending: make(map[int64][]func())}
}

// Push never blocks. A key present in pending has a running worker.
func (q *userQueue) Push(userID int64, job func()) {
	q.mu.Lock()
	if list, busy := q.pending[userID]; busy {
		q.pending[userID] = append(list, job)
		q.mu.Unlock()
		return
	}
	q.pending[userID] = nil
	q.wg.Add(1)
	q.mu.Unlock()

	go q.drain(userID, job)
}

func (q *userQueue) drain(userID int64, job func()) {
	defer q.wg.Done()
	for {
		job()

		q.mu.Lock()
		list := q.pending[userID]
		if len(list) == 0 {
			delete(q.pending, userID)
			q.mu.Unlock()
			return
		}
		job, q.pending[userID] = list[0], list[1:]
		q.mu.Unlock()
	}
}

// Wait blocks until every queued job has run.
func (q *userQueue) Wait() {
	q.wg.Wait()
}

func (q *userQueue) busy() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
