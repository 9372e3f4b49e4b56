// Package cmdqueue implements the cross-thread deferred command queue
// callers use to request layer transitions (play, stop, looped/ended
// callbacks) that must not run concurrently with the audio callback,
// grounded on original_source/src/Mixer/Mixer.cpp's PushCommand/
// ExecuteCommands FIFO command stack.
package cmdqueue

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Command is a unit of deferred work. It returns false to signal it could
// not complete (e.g. the layer it targeted has since been reused) so the
// queue can log a diagnostic rather than silently dropping failures.
type Command func() bool

// Queue is a bounded, non-growing ring buffer of pending commands, sized
// once at construction so Push is safe to call from a non-realtime thread
// without ever blocking the audio callback that later calls Drain.
type Queue struct {
	mu       sync.Mutex
	items    []Command
	head     int
	size     int
	capacity int
	logger   *log.Logger
}

// New constructs a queue with room for capacity pending commands.
// Capacity should be sized generously relative to layer count (4x is the
// original engine's rule of thumb) since Push fails closed when full.
func New(capacity int, logger *log.Logger) *Queue {
	if logger == nil {
		logger = log.Default()
	}
	return &Queue{
		items:    make([]Command, capacity),
		capacity: capacity,
		logger:   logger,
	}
}

// Push enqueues cmd, returning false if the queue is full. Safe to call
// concurrently with Drain.
func (q *Queue) Push(cmd Command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == q.capacity {
		return false
	}

	tail := (q.head + q.size) % q.capacity
	q.items[tail] = cmd
	q.size++
	return true
}

// Drain executes every pending command in FIFO order and empties the
// queue, intended to be called once per mix cycle from the audio thread
// after the mutex protecting layer state has been released, so a
// callback can safely call back into the mixer (e.g. Play from onEnded)
// without deadlocking or delaying the next cycle's lock acquisition.
func (q *Queue) Drain() {
	q.mu.Lock()
	pending := make([]Command, q.size)
	for i := 0; i < q.size; i++ {
		pending[i] = q.items[(q.head+i)%q.capacity]
	}
	q.head = 0
	q.size = 0
	q.mu.Unlock()

	for _, cmd := range pending {
		if !cmd() {
			q.logger.Warn("deferred command failed to apply")
		}
	}
}

// Len reports the number of pending commands, for diagnostics and tests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}
