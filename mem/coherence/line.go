package coherence

// A Line is the coherence record of one cache block. The owning cache
// allocates it and hands it to the Controller, which only mutates it.
type Line struct {
	BaseAddr  uint64
	State     State
	Data      []byte
	ReadyTime uint64

	LockCount            int
	AtomicActive         bool
	EventsWaitingForLock bool

	// Prefetched is set when a local prefetch filled the line and no demand
	// access has touched it yet.
	Prefetched bool
}

// NewLine creates an invalid line with a zeroed block of data.
func NewLine(baseAddr uint64, blockSize int) *Line {
	return &Line{
		BaseAddr: baseAddr,
		State:    StateI,
		Data:     make([]byte, blockSize),
	}
}

// IsLocked returns true while a locked read-modify-write is in progress.
func (l *Line) IsLocked() bool {
	return l.LockCount > 0
}

// InTransition returns true if the line waits for a response.
func (l *Line) InTransition() bool {
	return l.State.InTransition()
}

func (l *Line) incLock() {
	l.LockCount++
}

func (l *Line) decLock() {
	l.LockCount--
	if l.LockCount == 0 {
		l.EventsWaitingForLock = false
	}
}

func (l *Line) atomicStart() {
	l.AtomicActive = true
}

func (l *Line) atomicEnd() {
	l.AtomicActive = false
}

// advanceReadyTime never moves the watermark backward.
func (l *Line) advanceReadyTime(t uint64) {
	if t > l.ReadyTime {
		l.ReadyTime = t
	}
}

func (l *Line) setData(payload []byte, offset uint64) {
	end := offset + uint64(len(payload))
	if uint64(len(l.Data)) < end {
		grown := make([]byte, end)
		copy(grown, l.Data)
		l.Data = grown
	}

	copy(l.Data[offset:end], payload)
}

func (l *Line) cloneData() []byte {
	data := make([]byte, len(l.Data))
	copy(data, l.Data)

	return data
}
