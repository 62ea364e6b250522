package connection

// queue is a bounded FIFO of encoded outbound messages. Pushing onto a
// full queue evicts the oldest entry.
type queue struct {
	items [][]byte
	limit int
}

func newQueue(limit int) *queue {
	return &queue{limit: limit}
}

// push appends data and reports whether an old entry was evicted.
func (q *queue) push(data []byte) (dropped bool) {
	if len(q.items) >= q.limit {
		q.items[0] = nil
		q.items = q.items[1:]
		dropped = true
	}
	q.items = append(q.items, data)
	return dropped
}

// pushFront puts data back at the head, as after a failed flush write.
// When full, the tail is evicted so the head keeps its place.
func (q *queue) pushFront(data []byte) (dropped bool) {
	if len(q.items) >= q.limit {
		q.items = q.items[:len(q.items)-1]
		dropped = true
	}
	q.items = append([][]byte{data}, q.items...)
	return dropped
}

func (q *queue) pop() ([]byte, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	data := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return data, true
}

func (q *queue) len() int {
	return len(q.items)
}

func (q *queue) clear() {
	q.items = nil
}
