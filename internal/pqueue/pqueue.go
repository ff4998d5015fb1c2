// Package pqueue implements the VA-File's bounded candidate queue: a
// fixed-capacity array re-sorted after every insertion. Grounded verbatim on
// adam_utils_priorityqueue.c (createQueue / insertIntoQueueCheck /
// insertIntoQueue / getMaximumElement); the spec is explicit that this
// trades efficiency for a simple, obviously-correct contract ("qsort after
// every insertion (correctness over optimality)"), so this does not reuse
// the teacher's container/heap-based bounded search from pkg/hnsw/search.go
// — that algorithm has a different (partial) ordering guarantee than the
// total re-sort this component's API promises via Get/Max.
package pqueue

import "sort"

// Item is one candidate: a sort key plus an opaque payload.
type Item struct {
	Key     float64
	Payload any
}

// Queue is a fixed-capacity array ordered ascending by Key.
type Queue struct {
	cap   int
	items []Item
}

// New creates a queue of the given capacity.
func New(capacity int) *Queue {
	return &Queue{cap: capacity, items: make([]Item, 0, capacity)}
}

// Len returns the current number of entries.
func (q *Queue) Len() int { return len(q.items) }

// Cap returns the queue's capacity.
func (q *Queue) Cap() int { return q.cap }

// InsertCheck reports whether key is worth inserting: the queue has room,
// or key does not exceed the current worst (last, largest) entry.
func (q *Queue) InsertCheck(key float64) bool {
	if len(q.items) < q.cap {
		return true
	}
	if q.cap == 0 {
		return false
	}
	return key <= q.items[q.cap-1].Key
}

// Insert adds an item, replacing the current worst entry when full, then
// re-sorts the whole array ascending by Key.
func (q *Queue) Insert(key float64, payload any) {
	if len(q.items) < q.cap {
		q.items = append(q.items, Item{Key: key, Payload: payload})
	} else {
		if q.cap == 0 || key > q.items[q.cap-1].Key {
			return
		}
		q.items[q.cap-1] = Item{Key: key, Payload: payload}
	}
	sort.Slice(q.items, func(i, j int) bool { return q.items[i].Key < q.items[j].Key })
}

// Max returns the current worst (largest-key) entry and true, or the zero
// Item and false when the queue is empty.
func (q *Queue) Max() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	return q.items[len(q.items)-1], true
}

// Get returns the i-th entry in ascending order.
func (q *Queue) Get(i int) (Item, bool) {
	if i < 0 || i >= len(q.items) {
		return Item{}, false
	}
	return q.items[i], true
}

// Items returns the queue's contents in ascending order. The slice is owned
// by the caller; mutating it does not affect the queue.
func (q *Queue) Items() []Item {
	out := make([]Item, len(q.items))
	copy(out, q.items)
	return out
}
