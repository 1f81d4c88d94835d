package buffer

import "pagestore/disk"

/*
Page is the content of one buffer-pool frame. It wraps the frame's byte buffer
and stores information about its status: the identity of the disk page it
currently hosts, the number of times it has been pinned, and whether its bytes
have been modified since they were last written back.

The frame slot itself is stable for the lifetime of the Manager; only the Page
content it hosts changes as frames are recycled.
*/
type Page struct {
	contents *disk.Page
	id       disk.PageID
	pinCount int
	dirty    bool
}

func newPage() *Page {
	return &Page{
		contents: disk.NewPage(),
		id:       disk.PageID{PageNo: disk.InvalidPageNo},
	}
}

// Contents returns the page's byte buffer. The buffer is only meaningful
// while the caller holds a pin on the page.
func (p *Page) Contents() *disk.Page {
	return p.contents
}

// ID returns the identity of the disk page this frame currently hosts.
func (p *Page) ID() disk.PageID {
	return p.id
}

// PinCount returns the number of active pins on the page.
func (p *Page) PinCount() int {
	return p.pinCount
}

// IsDirty reports whether the page has been modified since its last write-back.
func (p *Page) IsDirty() bool {
	return p.dirty
}

// isPinned returns true if the page is currently pinned (that is, if it has a nonzero pin count)
func (p *Page) isPinned() bool {
	return p.pinCount > 0
}

// pin increases the page's pin count
func (p *Page) pin() { p.pinCount++ }

// unpin decreases the page's pin count
func (p *Page) unpin() { p.pinCount-- }

// reset empties the frame for return to the free list.
func (p *Page) reset() {
	p.contents.Reset()
	p.id = disk.PageID{Fd: p.id.Fd, PageNo: disk.InvalidPageNo}
	p.pinCount = 0
	p.dirty = false
}
