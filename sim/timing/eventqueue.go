package timing

import (
	"container/heap"
)

// EventQueue is a queue of events ordered by time. Events scheduled for the
// same time leave in the order they were pushed.
type EventQueue interface {
	Push(evt Event)
	Pop() Event
	Peek() Event
	Len() int
}

// NewEventQueue creates an empty EventQueue.
func NewEventQueue() EventQueue {
	q := &eventQueueImpl{}
	heap.Init(&q.events)

	return q
}

type queuedEvent struct {
	evt Event
	seq uint64
}

type eventQueueImpl struct {
	events  eventHeap
	nextSeq uint64
}

func (q *eventQueueImpl) Push(evt Event) {
	heap.Push(&q.events, queuedEvent{evt: evt, seq: q.nextSeq})
	q.nextSeq++
}

func (q *eventQueueImpl) Pop() Event {
	return heap.Pop(&q.events).(queuedEvent).evt
}

func (q *eventQueueImpl) Peek() Event {
	return q.events[0].evt
}

func (q *eventQueueImpl) Len() int {
	return q.events.Len()
}

type eventHeap []queuedEvent

func (h eventHeap) Len() int {
	return len(h)
}

func (h eventHeap) Less(i, j int) bool {
	if h[i].evt.Time() != h[j].evt.Time() {
		return h[i].evt.Time() < h[j].evt.Time()
	}

	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(queuedEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = queuedEvent{}
	*h = old[:n-1]

	return item
}
