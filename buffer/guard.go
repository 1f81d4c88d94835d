package buffer

import "pagestore/disk"

/*
PageGuard ties a pin to a handle instead of trusting the caller to balance
FetchPage with UnpinPage by hand. The underlying frame is only valid for the
guard's lifetime; Release is idempotent, so the usual pattern is

	g, err := m.FetchPageGuarded(id)
	if err != nil { ... }
	defer g.Release()

Writers call MarkDirty before the guard is released; the dirty flag is handed
to UnpinPage on release.
*/
type PageGuard struct {
	m        *Manager
	page     *Page
	id       disk.PageID
	dirty    bool
	released bool
}

// FetchPageGuarded fetches a page as FetchPage does and wraps the pin in a
// guard.
func (m *Manager) FetchPageGuarded(id disk.PageID) (*PageGuard, error) {
	p, err := m.FetchPage(id)
	if err != nil {
		return nil, err
	}
	return &PageGuard{m: m, page: p, id: id}, nil
}

// NewPageGuarded allocates a page as NewPage does and wraps the pin in a
// guard.
func (m *Manager) NewPageGuarded(fd int) (*PageGuard, error) {
	p, err := m.NewPage(fd)
	if err != nil {
		return nil, err
	}
	return &PageGuard{m: m, page: p, id: p.ID()}, nil
}

// ID returns the identity of the guarded page. Valid after release.
func (g *PageGuard) ID() disk.PageID {
	return g.id
}

// Contents returns the guarded page's byte buffer, or nil once the guard has
// been released.
func (g *PageGuard) Contents() *disk.Page {
	if g.released {
		return nil
	}
	return g.page.Contents()
}

// MarkDirty records that the caller modified the page. The pool learns of it
// when the guard is released.
func (g *PageGuard) MarkDirty() {
	g.dirty = true
}

// Release drops the guard's pin. Calling it again is a no-op.
func (g *PageGuard) Release() error {
	if g.released {
		return nil
	}
	g.released = true
	g.page = nil
	return g.m.UnpinPage(g.id, g.dirty)
}
