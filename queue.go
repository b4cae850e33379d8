//go:build linux || darwin

package msgloop

// MessageQueue is an intrusive, doubly linked list of messages. It owns the
// links, never the messages, and has no locking: a queue belongs to exactly
// one loop and is only touched from that loop's goroutine.
//
// Pushing a message that is already linked panics with [ErrMessageLinked].
// Popping an empty queue returns nil.
type MessageQueue struct {
	head   Message
	tail   Message
	length int
}

// PushFront inserts msg at the head of the queue.
func (q *MessageQueue) PushFront(msg Message) {
	n := q.claim(msg)
	n.next = q.head
	if q.head != nil {
		q.head.messageLink().prev = msg
	} else {
		q.tail = msg
	}
	q.head = msg
	q.length++
}

// PushBack inserts msg at the tail of the queue.
func (q *MessageQueue) PushBack(msg Message) {
	n := q.claim(msg)
	n.prev = q.tail
	if q.tail != nil {
		q.tail.messageLink().next = msg
	} else {
		q.head = msg
	}
	q.tail = msg
	q.length++
}

// InsertAfter splices msg in directly after mark. If mark is not linked in
// this queue it does nothing and returns false, leaving msg untouched.
func (q *MessageQueue) InsertAfter(mark, msg Message) bool {
	if mark == nil || mark.messageLink().queue != q {
		return false
	}
	n := q.claim(msg)
	m := mark.messageLink()
	n.prev = mark
	n.next = m.next
	if m.next != nil {
		m.next.messageLink().prev = msg
	} else {
		q.tail = msg
	}
	m.next = msg
	q.length++
	return true
}

// PopFront removes and returns the first message, or nil if empty.
func (q *MessageQueue) PopFront() Message {
	msg := q.head
	if msg != nil {
		q.unlink(msg)
	}
	return msg
}

// PopBack removes and returns the last message, or nil if empty.
func (q *MessageQueue) PopBack() Message {
	msg := q.tail
	if msg != nil {
		q.unlink(msg)
	}
	return msg
}

// Front returns the first message without removing it.
func (q *MessageQueue) Front() Message { return q.head }

// Back returns the last message without removing it.
func (q *MessageQueue) Back() Message { return q.tail }

// Len returns the number of queued messages.
func (q *MessageQueue) Len() int { return q.length }

// Empty reports whether the queue holds no messages.
func (q *MessageQueue) Empty() bool { return q.head == nil }

// Contains reports whether msg is linked in this queue.
func (q *MessageQueue) Contains(msg Message) bool {
	return msg != nil && msg.messageLink().queue == q
}

func (q *MessageQueue) claim(msg Message) *MessageLink {
	if msg == nil {
		panic(ErrNilMessage)
	}
	n := msg.messageLink()
	if n.queue != nil {
		panic(ErrMessageLinked)
	}
	n.queue = q
	return n
}

func (q *MessageQueue) unlink(msg Message) {
	n := msg.messageLink()
	if n.prev != nil {
		n.prev.messageLink().next = n.next
	} else {
		q.head = n.next
	}
	if n.next != nil {
		n.next.messageLink().prev = n.prev
	} else {
		q.tail = n.prev
	}
	n.reset()
	q.length--
}
