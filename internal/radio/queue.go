package radio

import (
	"sync"
	"time"

	"github.com/radioconsole/rcd/internal/sb9600"
)

// command is one encoded message waiting for the transport loop.
type command struct {
	Raw       []byte
	Desc      string
	NotBefore time.Time
}

func frameCommand(f sb9600.Frame) command {
	return command{Raw: f.Encode(), Desc: f.String()}
}

// commandQueue is a multi-producer, single-consumer queue. Producers never block
// beyond the mutex. Undelayed entries are FIFO and drain before delayed ones.
type commandQueue struct {
	mu      sync.Mutex
	ready   []command
	delayed []command
	now     func() time.Time
}

func newCommandQueue() *commandQueue {
	return &commandQueue{now: time.Now}
}

func (q *commandQueue) Push(cmd command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cmd.NotBefore = time.Time{}
	q.ready = append(q.ready, cmd)
}

func (q *commandQueue) PushAfter(cmd command, delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cmd.NotBefore = q.now().Add(delay)
	q.delayed = append(q.delayed, cmd)
}

// Pop returns the next command that may be sent now.
func (q *commandQueue) Pop() (command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ready) > 0 {
		cmd := q.ready[0]
		q.ready[0] = command{}
		q.ready = q.ready[1:]
		return cmd, true
	}
	now := q.now()
	due := -1
	for i, cmd := range q.delayed {
		if now.Before(cmd.NotBefore) {
			continue
		}
		if due < 0 || cmd.NotBefore.Before(q.delayed[due].NotBefore) {
			due = i
		}
	}
	if due < 0 {
		return command{}, false
	}
	cmd := q.delayed[due]
	q.delayed = append(q.delayed[:due], q.delayed[due+1:]...)
	return cmd, true
}

func (q *commandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready) + len(q.delayed)
}

// Drain drops everything still queued and returns how many entries were lost.
func (q *commandQueue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.ready) + len(q.delayed)
	q.ready = nil
	q.delayed = nil
	return n
}
