package queueing

import (
	"log"

	"github.com/sarchlab/mesil1/mem/coherence"
	"github.com/sarchlab/mesil1/sim/hooking"
)

// Item is a message waiting in an OutgoingQueue.
type Item struct {
	Msg          *coherence.Msg
	DeliveryTime uint64
	Size         int
}

// OutgoingQueue holds the messages a component has sent but that have not
// reached their destination yet. Messages leave in delivery-time order,
// except that a message never overtakes an earlier message to the same
// block.
//
// OutgoingQueue implements coherence.Channel.
type OutgoingQueue struct {
	hooking.HookableBase

	name          string
	bytesPerCycle int

	items     []Item
	cycle     uint64
	bytesUsed int
}

// OutgoingQueueBuilder builds OutgoingQueues.
type OutgoingQueueBuilder struct {
	bytesPerCycle int
}

// WithBytesPerCycle limits how many bytes can leave the queue in one cycle.
// The first message of a cycle always leaves. 0 means no limit.
func (b OutgoingQueueBuilder) WithBytesPerCycle(n int) OutgoingQueueBuilder {
	b.bytesPerCycle = n
	return b
}

// Build creates an empty queue.
func (b OutgoingQueueBuilder) Build(name string) *OutgoingQueue {
	if b.bytesPerCycle < 0 {
		log.Panicf("queue %s has a negative bandwidth", name)
	}

	return &OutgoingQueue{
		name:          name,
		bytesPerCycle: b.bytesPerCycle,
	}
}

// Name returns the name of the queue.
func (q *OutgoingQueue) Name() string {
	return q.name
}

// Enqueue adds a message that must not arrive before deliveryTime.
func (q *OutgoingQueue) Enqueue(
	msg *coherence.Msg,
	deliveryTime uint64,
	sizeInBytes int,
) {
	i := len(q.items)
	for i > 0 {
		prev := q.items[i-1]
		if prev.DeliveryTime <= deliveryTime ||
			prev.Msg.BaseAddr == msg.BaseAddr {
			break
		}

		i--
	}

	item := Item{Msg: msg, DeliveryTime: deliveryTime, Size: sizeInBytes}
	q.items = append(q.items, Item{})
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = item

	q.invoke(HookPosBufPush, item)
}

// Len returns the number of messages in the queue.
func (q *OutgoingQueue) Len() int {
	return len(q.items)
}

// Peek returns the next message to leave, if any.
func (q *OutgoingQueue) Peek() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}

	return q.items[0], true
}

// Items returns a copy of the queued messages in the order they will leave.
func (q *OutgoingQueue) Items() []Item {
	return append([]Item(nil), q.items...)
}

// PopReady removes and returns the next message if it can be delivered at
// now.
func (q *OutgoingQueue) PopReady(now uint64) (Item, bool) {
	head, ok := q.Peek()
	if !ok || head.DeliveryTime > now {
		return Item{}, false
	}

	if now != q.cycle {
		q.cycle = now
		q.bytesUsed = 0
	}

	if q.bytesPerCycle > 0 && q.bytesUsed > 0 &&
		q.bytesUsed+head.Size > q.bytesPerCycle {
		return Item{}, false
	}

	q.bytesUsed += head.Size

	return q.pop(), true
}

// PopFront removes and returns the next message regardless of its delivery
// time.
func (q *OutgoingQueue) PopFront() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}

	return q.pop(), true
}

func (q *OutgoingQueue) pop() Item {
	item := q.items[0]
	q.items[0] = Item{}
	q.items = q.items[1:]

	q.invoke(HookPosBufPop, item)

	return item
}

func (q *OutgoingQueue) invoke(pos *hooking.HookPos, item Item) {
	if q.NumHooks() == 0 {
		return
	}

	q.InvokeHook(hooking.HookCtx{
		Domain: q,
		Pos:    pos,
		Item:   item.Msg,
		Detail: item,
	})
}
