package disk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

var (
	// ErrUnknownFile is returned when an operation names a file descriptor
	// that was never returned by Open.
	ErrUnknownFile = errors.New("unknown file descriptor")
	// ErrInvalidPageNo is returned when an operation names a page number
	// that cannot refer to a page on disk.
	ErrInvalidPageNo = errors.New("invalid page number")
)

// Manager is the persistent store used by the buffer pool. It performs
// byte-level page reads and writes against files in a database directory and
// hands out fresh page numbers. The Manager is thread-safe.
type Manager struct {
	dbDirectory  string
	mu           sync.Mutex
	files        map[int]*os.File
	fds          map[string]int
	nextFd       int
	nextPageNo   map[int]int
	pagesRead    int
	pagesWritten int
}

func NewManager(dbDirectory string) (*Manager, error) {
	if _, err := os.Stat(dbDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(dbDirectory, 0755); err != nil {
			return nil, fmt.Errorf("cannot create directory %s: %v", dbDirectory, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("cannot access directory %s: %v", dbDirectory, err)
	}

	return &Manager{
		dbDirectory: dbDirectory,
		files:       make(map[int]*os.File),
		fds:         make(map[string]int),
		nextPageNo:  make(map[int]int),
	}, nil
}

// Open opens (creating if necessary) the named page file and returns its
// descriptor. Opening the same name twice returns the same descriptor.
// Page numbers previously allocated in the file stay allocated: the
// allocation counter resumes past the file's current length.
func (m *Manager) Open(filename string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if fd, ok := m.fds[filename]; ok {
		return fd, nil
	}

	path := filepath.Join(m.dbDirectory, filename)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return 0, fmt.Errorf("cannot open file %s: %v", path, err)
	}
	fileInfo, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("cannot stat %s: %v", path, err)
	}

	fd := m.nextFd
	m.nextFd++
	m.files[fd] = f
	m.fds[filename] = fd
	m.nextPageNo[fd] = int(fileInfo.Size() / PageSize)
	return fd, nil
}

// ReadPage fills page with the stored bytes of the given page. Reading a page
// that was allocated but never written yields zero bytes.
func (m *Manager) ReadPage(fd, pageNo int, page *Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[fd]
	if !ok {
		return fmt.Errorf("cannot read page on fd %d: %w", fd, ErrUnknownFile)
	}
	if pageNo < 0 {
		return fmt.Errorf("cannot read page %d of fd %d: %w", pageNo, fd, ErrInvalidPageNo)
	}

	offset := int64(pageNo) * PageSize
	buf := page.Contents()
	n, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("cannot read page %d of fd %d: %v", pageNo, fd, err)
	}
	// A short read means the tail of the page was never written; it reads
	// back as zeros.
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	m.pagesRead++
	return nil
}

// WritePage durably persists the page's bytes at the given page's location.
func (m *Manager) WritePage(fd, pageNo int, page *Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[fd]
	if !ok {
		return fmt.Errorf("cannot write page on fd %d: %w", fd, ErrUnknownFile)
	}
	if pageNo < 0 {
		return fmt.Errorf("cannot write page %d of fd %d: %w", pageNo, fd, ErrInvalidPageNo)
	}

	offset := int64(pageNo) * PageSize
	buf := page.Contents()
	n, err := f.WriteAt(buf, offset)
	if err != nil {
		return fmt.Errorf("cannot write page %d of fd %d: %v", pageNo, fd, err)
	}
	if n != len(buf) {
		return fmt.Errorf("short write: expected %d bytes, wrote %d", len(buf), n)
	}

	// Ensure the data is flushed to disk.
	if err := f.Sync(); err != nil {
		return fmt.Errorf("cannot sync fd %d to disk: %v", fd, err)
	}
	m.pagesWritten++
	return nil
}

// AllocatePage returns a fresh page number for the file. Numbers increase
// monotonically and are never reused, even after the page is deleted.
func (m *Manager) AllocatePage(fd int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[fd]; !ok {
		return InvalidPageNo, fmt.Errorf("cannot allocate page on fd %d: %w", fd, ErrUnknownFile)
	}
	pageNo := m.nextPageNo[fd]
	m.nextPageNo[fd]++
	return pageNo, nil
}

// Length returns the number of pages currently stored in the file.
func (m *Manager) Length(fd int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.files[fd]
	if !ok {
		return 0, fmt.Errorf("cannot get length of fd %d: %w", fd, ErrUnknownFile)
	}
	fileInfo, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("cannot stat fd %d: %v", fd, err)
	}
	return int(fileInfo.Size() / PageSize), nil
}

// Close closes every open page file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for fd, f := range m.files {
		if err := f.Close(); err != nil {
			return fmt.Errorf("cannot close fd %d: %v", fd, err)
		}
		delete(m.files, fd)
	}
	return nil
}

func (m *Manager) PagesRead() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pagesRead
}

func (m *Manager) PagesWritten() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pagesWritten
}
