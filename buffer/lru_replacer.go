package buffer

import (
	"container/list"
	"sync"
)

// LRUReplacer evicts the frame that has been eligible the longest. It keeps
// eligible frames in a doubly linked list (most recently unpinned at the
// front) with a map for O(1) membership checks and removals. It is the
// Manager's default policy.
type LRUReplacer struct {
	mu    sync.Mutex
	order *list.List
	elems map[FrameID]*list.Element
}

// NewLRUReplacer creates an empty LRUReplacer.
func NewLRUReplacer() *LRUReplacer {
	return &LRUReplacer{
		order: list.New(),
		elems: make(map[FrameID]*list.Element),
	}
}

// Victim removes and returns the least recently unpinned frame.
func (r *LRUReplacer) Victim() (FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	back := r.order.Back()
	if back == nil {
		return 0, false
	}
	id := r.order.Remove(back).(FrameID)
	delete(r.elems, id)
	return id, true
}

// Pin removes the frame from eviction eligibility.
func (r *LRUReplacer) Pin(id FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if elem, ok := r.elems[id]; ok {
		r.order.Remove(elem)
		delete(r.elems, id)
	}
}

// Unpin marks the frame as the most recent eviction candidate. A frame that
// is already eligible keeps its position.
func (r *LRUReplacer) Unpin(id FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.elems[id]; ok {
		return
	}
	r.elems[id] = r.order.PushFront(id)
}

// Size returns the number of frames eligible for eviction.
func (r *LRUReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.elems)
}
