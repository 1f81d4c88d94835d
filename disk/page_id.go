package disk

import "fmt"

// InvalidPageNo marks a PageID that does not refer to any page.
const InvalidPageNo = -1

// PageID identifies a page by the descriptor of the file it lives in and its
// page number within that file. It is an immutable value type and is used as
// the buffer pool's page-table key.
type PageID struct {
	Fd     int
	PageNo int
}

func NewPageID(fd, pageNo int) PageID {
	return PageID{Fd: fd, PageNo: pageNo}
}

// Valid reports whether the id refers to an actual page.
func (id PageID) Valid() bool {
	return id.PageNo != InvalidPageNo
}

func (id PageID) String() string {
	return fmt.Sprintf("[fd %d, page %d]", id.Fd, id.PageNo)
}
