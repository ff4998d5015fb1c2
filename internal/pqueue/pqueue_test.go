package pqueue

import "testing"

func TestInsertKeepsKSmallest(t *testing.T) {
	q := New(3)
	for _, k := range []float64{5, 1, 9, 2, 8, 0.5} {
		if q.InsertCheck(k) {
			q.Insert(k, nil)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("expected len 3, got %d", q.Len())
	}
	want := []float64{0.5, 1, 2}
	for i, w := range want {
		item, ok := q.Get(i)
		if !ok || item.Key != w {
			t.Errorf("Get(%d) = %v, want %v", i, item.Key, w)
		}
	}
	max, ok := q.Max()
	if !ok || max.Key != 2 {
		t.Errorf("Max() = %v, want 2", max.Key)
	}
}

func TestInsertCheckRejectsWorseThanFull(t *testing.T) {
	q := New(2)
	q.Insert(1, "a")
	q.Insert(2, "b")
	if q.InsertCheck(5) {
		t.Error("expected InsertCheck(5) to be false once the queue is full of smaller keys")
	}
	if !q.InsertCheck(1.5) {
		t.Error("expected InsertCheck(1.5) to be true, it beats the current worst")
	}
}

func TestEmptyQueueMax(t *testing.T) {
	q := New(3)
	if _, ok := q.Max(); ok {
		t.Error("expected Max() to report false on an empty queue")
	}
}

func TestZeroCapacityQueue(t *testing.T) {
	q := New(0)
	if q.InsertCheck(1) {
		t.Error("expected a zero-capacity queue to never accept inserts")
	}
}

func TestItemsIsDefensiveCopy(t *testing.T) {
	q := New(2)
	q.Insert(1, nil)
	items := q.Items()
	items[0].Key = 999
	again := q.Items()
	if again[0].Key == 999 {
		t.Error("Items() should return a copy, not a view")
	}
}

func TestPayloadRoundTrips(t *testing.T) {
	q := New(2)
	q.Insert(3, "three")
	q.Insert(1, "one")
	item, _ := q.Get(0)
	if item.Payload.(string) != "one" {
		t.Errorf("expected payload %q, got %v", "one", item.Payload)
	}
}
