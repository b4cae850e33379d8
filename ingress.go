//go:build linux || darwin

package msgloop

import (
	"sync"
)

// chunkSize is the number of messages per node in the ingress list.
const chunkSize = 128

// chunkPool recycles exhausted chunks.
var chunkPool = sync.Pool{
	New: func() any {
		return &chunk{}
	},
}

// chunk is a fixed-size node in the ingress list, with read/write cursors
// for O(1) push and pop without shifting.
type chunk struct {
	msgs    [chunkSize]Message
	next    *chunk
	readPos int
	pos     int
}

func newChunk() *chunk {
	c := chunkPool.Get().(*chunk)
	c.pos = 0
	c.readPos = 0
	c.next = nil
	return c
}

// returnChunk clears retained messages before pooling the chunk.
func returnChunk(c *chunk) {
	clear(c.msgs[:c.pos])
	c.pos = 0
	c.readPos = 0
	c.next = nil
	chunkPool.Put(c)
}

// ingress is the cross-goroutine inbox behind Loop.Post. Producers on any
// goroutine push under mu; the loop goroutine moves everything into its
// MessageQueue at the start of each drain.
type ingress struct {
	head   *chunk
	tail   *chunk
	mu     sync.Mutex
	length int
}

// push appends msg. Caller must hold mu.
func (q *ingress) push(msg Message) {
	if q.tail == nil {
		q.tail = newChunk()
		q.head = q.tail
	}
	if q.tail.pos == len(q.tail.msgs) {
		c := newChunk()
		q.tail.next = c
		q.tail = c
	}
	q.tail.msgs[q.tail.pos] = msg
	q.tail.pos++
	q.length++
}

// pop removes the oldest message. Caller must hold mu.
func (q *ingress) pop() (Message, bool) {
	for q.head != nil {
		if q.head.readPos < q.head.pos {
			msg := q.head.msgs[q.head.readPos]
			q.head.msgs[q.head.readPos] = nil
			q.head.readPos++
			q.length--
			return msg, true
		}
		if q.head == q.tail {
			q.head.pos = 0
			q.head.readPos = 0
			return nil, false
		}
		old := q.head
		q.head = old.next
		returnChunk(old)
	}
	return nil, false
}

// len returns the number of pending messages.
func (q *ingress) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length
}

// drainInto moves every pending message onto the tail of dst, preserving
// order, and returns the count moved.
func (q *ingress) drainInto(dst *MessageQueue) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	var n int
	for {
		msg, ok := q.pop()
		if !ok {
			return n
		}
		msg.messageLink().reset()
		dst.PushBack(msg)
		n++
	}
}

// discard drops every pending message, resetting their links, and returns
// the count dropped.
func (q *ingress) discard() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	var n int
	for {
		msg, ok := q.pop()
		if !ok {
			return n
		}
		msg.messageLink().reset()
		n++
	}
}
