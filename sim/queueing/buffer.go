package queueing

import (
	"log"

	"github.com/sarchlab/mesil1/sim/hooking"
)

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &hooking.HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &hooking.HookPos{Name: "Buf Pop"}

// A Buffer is a fifo queue for anything
type Buffer interface {
	hooking.Hookable

	Name() string
	CanPush() bool
	Push(e any)
	Pop() any
	Peek() any
	Capacity() int
	Size() int
	Clear()
}

// BufferBuilder is a builder for Buffer.
type BufferBuilder struct {
	capacity int
}

// WithCapacity defines the capacity of the buffer. A capacity of 0 means the
// buffer never fills up.
func (b BufferBuilder) WithCapacity(capacity int) BufferBuilder {
	b.capacity = capacity
	return b
}

// Build builds a new Buffer.
func (b BufferBuilder) Build(name string) Buffer {
	if b.capacity < 0 {
		log.Panicf("buffer %s has a negative capacity", name)
	}

	return &bufferImpl{
		name:     name,
		capacity: b.capacity,
	}
}

type bufferImpl struct {
	hooking.HookableBase

	name     string
	capacity int
	elements []any
}

func (b *bufferImpl) Name() string {
	return b.name
}

func (b *bufferImpl) CanPush() bool {
	return b.capacity == 0 || len(b.elements) < b.capacity
}

func (b *bufferImpl) Push(e any) {
	if !b.CanPush() {
		log.Panic("buffer overflow")
	}

	b.elements = append(b.elements, e)

	if b.NumHooks() > 0 {
		b.InvokeHook(hooking.HookCtx{
			Domain: b,
			Pos:    HookPosBufPush,
			Item:   e,
		})
	}
}

func (b *bufferImpl) Pop() any {
	if len(b.elements) == 0 {
		return nil
	}

	e := b.elements[0]
	b.elements[0] = nil
	b.elements = b.elements[1:]

	if b.NumHooks() > 0 {
		b.InvokeHook(hooking.HookCtx{
			Domain: b,
			Pos:    HookPosBufPop,
			Item:   e,
		})
	}

	return e
}

func (b *bufferImpl) Peek() any {
	if len(b.elements) == 0 {
		return nil
	}

	return b.elements[0]
}

func (b *bufferImpl) Capacity() int {
	return b.capacity
}

func (b *bufferImpl) Size() int {
	return len(b.elements)
}

func (b *bufferImpl) Clear() {
	b.elements = nil
}
