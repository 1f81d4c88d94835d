package buffer

// FrameID is the stable index of a slot in the buffer pool's frame array.
type FrameID int

// Replacer defines the interface for eviction policies. The Manager tells the
// policy which frames are pinned (ineligible) and unpinned (eligible); the
// policy decides which eligible frame to reclaim when the free list is empty.
//
// The Manager calls every method under its own lock, but implementations keep
// their own mutex so they stay safe for standalone use.
type Replacer interface {
	// Victim selects and removes one frame from the eligible set according
	// to the policy. It returns false if no frame is eligible.
	Victim() (FrameID, bool)
	// Pin removes a frame from eviction eligibility.
	Pin(id FrameID)
	// Unpin adds a frame back to eviction eligibility. Unpinning an
	// already-eligible frame is a no-op.
	Unpin(id FrameID)
	// Size returns the number of frames currently eligible for eviction.
	Size() int
}
