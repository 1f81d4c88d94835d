package buffer

import "errors"

var (
	// ErrNoAvailableFrame is returned by FetchPage and NewPage when the free
	// list is empty and every resident page is pinned. Callers must unpin
	// something and retry; the pool never waits.
	ErrNoAvailableFrame = errors.New("no available frame: all pages pinned")
	// ErrPageNotResident is returned when the requested page is not in the
	// buffer pool.
	ErrPageNotResident = errors.New("page is not resident in the buffer pool")
	// ErrPageNotPinned guards against unbalanced unpins.
	ErrPageNotPinned = errors.New("page pin count is already zero")
	// ErrPagePinned is returned by DeletePage for a page still in use.
	ErrPagePinned = errors.New("page is still pinned")
	// ErrInvalidPageID is returned for the invalid page-number sentinel.
	ErrInvalidPageID = errors.New("invalid page id")
	// ErrInvalidPoolSize rejects non-positive pool sizes at construction.
	ErrInvalidPoolSize = errors.New("pool size must be positive")
)
