package buffer

import (
	"fmt"
	"pagestore/disk"
	"sync"
)

/*
Manager is the buffer pool manager: it mediates every access to fixed-size
disk pages through a bounded set of in-memory frames, deciding what stays
cached, what gets evicted, and when dirty content is written back.

All pool-wide state (page table, free list, every frame's identity, dirty
flag and pin count) is guarded by one mutex held for the full duration of
each public operation, including any disk I/O performed inside it. Every
operation is therefore atomic with respect to every other; two concurrent
callers can never select the same victim frame. The cost is that one slow
read or write blocks all buffer-pool activity.

The bytes inside a pinned page are not protected by this lock beyond the
single operation that returned them; concurrent readers and writers of the
same pinned page must synchronize independently.
*/
type Manager struct {
	mu        sync.Mutex
	frames    []*Page
	pageTable map[disk.PageID]FrameID
	freeList  []FrameID
	available int
	replacer  Replacer
	dm        *disk.Manager
}

// NewManager creates a buffer pool of poolSize frames over the given disk
// manager, using the LRU eviction policy.
func NewManager(dm *disk.Manager, poolSize int) *Manager {
	return NewManagerWithReplacer(dm, poolSize, NewLRUReplacer())
}

// NewManagerWithReplacer creates a buffer pool with an explicit eviction
// policy. The frame array is allocated once here and never resized.
func NewManagerWithReplacer(dm *disk.Manager, poolSize int, replacer Replacer) *Manager {
	if poolSize <= 0 {
		panic(ErrInvalidPoolSize)
	}
	m := &Manager{
		frames:    make([]*Page, poolSize),
		pageTable: make(map[disk.PageID]FrameID, poolSize),
		freeList:  make([]FrameID, 0, poolSize),
		available: poolSize,
		replacer:  replacer,
		dm:        dm,
	}
	for i := range m.frames {
		m.frames[i] = newPage()
		m.freeList = append(m.freeList, FrameID(i))
	}
	return m
}

// Available returns the number of frames not currently pinned.
func (m *Manager) Available() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.available
}

/*
FetchPage returns the page with the given identity, pinned once for the
caller. If the page is already resident no disk I/O occurs; otherwise a frame
is reclaimed (writing back its previous tenant if dirty) and the page's bytes
are read from disk into it.

The caller must release the pin exactly once via UnpinPage. Returns
ErrNoAvailableFrame when the page is not resident and every frame is pinned.
*/
func (m *Manager) FetchPage(id disk.PageID) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fid, ok := m.pageTable[id]; ok {
		p := m.frames[fid]
		if !p.isPinned() {
			m.available--
		}
		p.pin()
		m.replacer.Pin(fid)
		return p, nil
	}

	fid, ok := m.acquireFrame()
	if !ok {
		return nil, ErrNoAvailableFrame
	}
	if err := m.prepareFrame(fid); err != nil {
		return nil, err
	}
	p := m.frames[fid]
	if err := m.dm.ReadPage(id.Fd, id.PageNo, p.contents); err != nil {
		p.reset()
		m.freeList = append(m.freeList, fid)
		return nil, fmt.Errorf("fetch %s: %v", id, err)
	}
	m.install(fid, id)
	return p, nil
}

/*
NewPage allocates a fresh page number in the given file, installs it in a
reclaimed frame and returns it pinned once. No disk read occurs; the frame's
bytes after any required write-back of the previous tenant are the new page's
initial content. The allocated identity is available through the returned
page's ID method.
*/
func (m *Manager) NewPage(fd int) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.acquireFrame()
	if !ok {
		return nil, ErrNoAvailableFrame
	}
	if err := m.prepareFrame(fid); err != nil {
		return nil, err
	}
	pageNo, err := m.dm.AllocatePage(fd)
	if err != nil {
		m.frames[fid].reset()
		m.freeList = append(m.freeList, fid)
		return nil, fmt.Errorf("new page: %v", err)
	}
	m.install(fid, disk.NewPageID(fd, pageNo))
	return m.frames[fid], nil
}

/*
UnpinPage releases one pin on a resident page. When the pin count reaches
zero the frame becomes eligible for eviction. If isDirty is true the page is
marked dirty; if false the existing dirty state is left untouched, so a page
dirtied by an earlier writer stays dirty until written back.

Returns ErrPageNotResident if the page is not in the pool and ErrPageNotPinned
if its pin count is already zero.
*/
func (m *Manager) UnpinPage(id disk.PageID, isDirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.pageTable[id]
	if !ok {
		return fmt.Errorf("unpin %s: %w", id, ErrPageNotResident)
	}
	p := m.frames[fid]
	if p.pinCount == 0 {
		return fmt.Errorf("unpin %s: %w", id, ErrPageNotPinned)
	}

	p.unpin()
	if p.pinCount == 0 {
		m.replacer.Unpin(fid)
		m.available++
	}
	if isDirty {
		p.dirty = true
	}
	return nil
}

// FlushPage writes a resident page's current bytes to disk regardless of its
// pin count or dirty state, then clears the dirty flag. It fails for the
// invalid page-number sentinel and for pages not in the pool.
func (m *Manager) FlushPage(id disk.PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.flushPage(id)
}

func (m *Manager) flushPage(id disk.PageID) error {
	if !id.Valid() {
		return fmt.Errorf("flush %s: %w", id, ErrInvalidPageID)
	}
	fid, ok := m.pageTable[id]
	if !ok {
		return fmt.Errorf("flush %s: %w", id, ErrPageNotResident)
	}
	p := m.frames[fid]
	if err := m.dm.WritePage(id.Fd, id.PageNo, p.contents); err != nil {
		return fmt.Errorf("flush %s: %v", id, err)
	}
	p.dirty = false
	return nil
}

// FlushAllPages writes back every resident page. A failed flush aborts the
// sweep; pages flushed before the failure stay flushed.
func (m *Manager) FlushAllPages() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.pageTable {
		if err := m.flushPage(id); err != nil {
			return err
		}
	}
	return nil
}

/*
DeletePage removes a page from the pool and puts its frame on the free list,
where it is preferred over policy-chosen victims for the next acquisition.
Dirty content is written back first. Deleting a page that is not resident
succeeds trivially; deleting a pinned page fails with ErrPagePinned and
changes nothing.
*/
func (m *Manager) DeletePage(id disk.PageID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fid, ok := m.pageTable[id]
	if !ok {
		return nil
	}
	p := m.frames[fid]
	if p.isPinned() {
		return fmt.Errorf("delete %s: %w", id, ErrPagePinned)
	}

	if p.dirty {
		if err := m.dm.WritePage(id.Fd, id.PageNo, p.contents); err != nil {
			return fmt.Errorf("delete %s: %v", id, err)
		}
		p.dirty = false
	}
	delete(m.pageTable, id)
	p.reset()
	m.replacer.Unpin(fid)
	m.freeList = append(m.freeList, fid)
	return nil
}

/*
acquireFrame produces one frame index safe to repopulate. The free list is
always preferred: its frames never held valid content or were already flushed
and released by DeletePage, so reusing them needs no write-back. Only when
the free list is empty is the eviction policy asked for a victim among
unpinned frames. Returns false when neither source yields a frame.
*/
func (m *Manager) acquireFrame() (FrameID, bool) {
	if len(m.freeList) > 0 {
		fid := m.freeList[0]
		m.freeList = m.freeList[1:]
		return fid, true
	}
	return m.replacer.Victim()
}

/*
prepareFrame makes an acquired frame ready for a new tenant: if its current
content is dirty it is written back at its current identity exactly once, the
frame's page-table entry is removed and its pin count reset. If the
write-back fails the frame is handed back to the eviction policy and the
page table is left intact, so no update is lost.
*/
func (m *Manager) prepareFrame(fid FrameID) error {
	p := m.frames[fid]
	if p.dirty {
		if err := m.dm.WritePage(p.id.Fd, p.id.PageNo, p.contents); err != nil {
			m.replacer.Unpin(fid)
			return fmt.Errorf("write back %s: %v", p.id, err)
		}
		p.dirty = false
	}
	delete(m.pageTable, p.id)
	p.pinCount = 0
	return nil
}

// install records a prepared frame's new identity with a single pin.
func (m *Manager) install(fid FrameID, id disk.PageID) {
	p := m.frames[fid]
	p.id = id
	p.pinCount = 1
	p.dirty = false
	m.pageTable[id] = fid
	m.replacer.Pin(fid)
	m.available--
}
