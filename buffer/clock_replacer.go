package buffer

import "sync"

// ClockReplacer implements the second-chance clock policy over a fixed set of
// frames. Each eligible frame carries a reference bit; the clock hand sweeps
// the frames, clearing set bits and evicting the first eligible frame found
// with its bit already clear. Frames recently made eligible therefore survive
// one full sweep before they can be chosen.
type ClockReplacer struct {
	mu       sync.Mutex
	eligible []bool
	refBit   []bool
	hand     int
	size     int
}

// NewClockReplacer creates a ClockReplacer for a pool of poolSize frames.
func NewClockReplacer(poolSize int) *ClockReplacer {
	if poolSize <= 0 {
		panic(ErrInvalidPoolSize)
	}
	return &ClockReplacer{
		eligible: make([]bool, poolSize),
		refBit:   make([]bool, poolSize),
	}
}

// Victim sweeps the clock hand until it finds an eligible frame whose
// reference bit is clear, removes it from eligibility and returns it.
func (r *ClockReplacer) Victim() (FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return 0, false
	}
	for {
		r.hand = (r.hand + 1) % len(r.eligible)
		if !r.eligible[r.hand] {
			continue
		}
		if r.refBit[r.hand] {
			r.refBit[r.hand] = false
			continue
		}
		r.eligible[r.hand] = false
		r.size--
		return FrameID(r.hand), true
	}
}

// Pin removes the frame from eviction eligibility.
func (r *ClockReplacer) Pin(id FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.eligible[id] {
		r.eligible[id] = false
		r.size--
	}
}

// Unpin makes the frame eligible with a second chance. Unpinning an
// already-eligible frame is a no-op.
func (r *ClockReplacer) Unpin(id FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.eligible[id] {
		return
	}
	r.eligible[id] = true
	r.refBit[id] = true
	r.size++
}

// Size returns the number of frames eligible for eviction.
func (r *ClockReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.size
}
