// Package bot routes incoming Telegram updates to the conversation flows.
// Updates for the same chat are processed strictly in arrival order; updates
// for different chats run concurrently.
package bot

import (
	"encoding/binary"
	"hash/fnv"
	"sync"
)

// Dispatcher fans updates out to a fixed pool of workers. A chat always hashes
// to the same worker, which gives per-chat ordering without a global lock.
type Dispatcher struct {
	queues []chan func()
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher creates a dispatcher with the given worker count and per-worker
// queue depth.
func NewDispatcher(workers, depth int) *Dispatcher {
	if workers <= 0 {
		workers = 8
	}
	if depth <= 0 {
		depth = 64
	}
	d := &Dispatcher{queues: make([]chan func(), workers)}
	for i := range d.queues {
		d.queues[i] = make(chan func(), depth)
	}
	return d
}

// Run starts the workers. Each drains its own queue until Stop.
func (d *Dispatcher) Run() {
	for _, q := range d.queues {
		d.wg.Add(1)
		go func(q chan func()) {
			defer d.wg.Done()
			for job := range q {
				job()
			}
		}(q)
	}
}

// Dispatch queues a job on the chat's worker, blocking if the queue is full.
// Jobs dispatched after Stop are dropped.
func (d *Dispatcher) Dispatch(chatID int64, job func()) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return
	}
	d.queues[workerFor(chatID, len(d.queues))] <- job
}

// Stop closes the queues and waits for queued jobs to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	for _, q := range d.queues {
		close(q)
	}
	d.wg.Wait()
}

func workerFor(chatID int64, workers int) int {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(chatID))
	h.Write(buf[:])
	return int(h.Sum64() % uint64(workers))
}
