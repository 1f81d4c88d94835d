package disk

import (
	"encoding/binary"
	"errors"
	"pagestore/utils"
	"runtime"
	"unicode/utf8"
)

// PageSize is the fixed size in bytes of every page on disk and of every
// buffer-pool frame that hosts one.
const PageSize = 4096

// Page is a fixed-size block of bytes that is read from or written to disk as
// a unit. Pages are the unit of transfer between disk and main memory; the
// typed accessors let higher layers store values at offsets without dealing
// with the raw encoding.
type Page struct {
	buffer []byte
}

// NewPage creates a Page backed by a zeroed PageSize buffer.
func NewPage() *Page {
	return &Page{buffer: make([]byte, PageSize)}
}

// NewPageFromBytes creates a Page by wrapping the provided byte slice.
// The slice must be PageSize long for the page to be usable with a Manager.
func NewPageFromBytes(bytes []byte) *Page {
	return &Page{buffer: bytes}
}

// GetInt retrieves an integer from the buffer at the specified offset.
func (p *Page) GetInt(offset int) int {
	if runtime.GOARCH == "386" || runtime.GOARCH == "arm" {
		return int(binary.BigEndian.Uint32(p.buffer[offset:]))
	}
	// arm64 (M1/M2 Macs) and amd64 use 64-bit
	return int(binary.BigEndian.Uint64(p.buffer[offset:]))
}

// SetInt writes an integer to the buffer at the specified offset.
func (p *Page) SetInt(offset int, n int) {
	if runtime.GOARCH == "386" || runtime.GOARCH == "arm" {
		binary.BigEndian.PutUint32(p.buffer[offset:], uint32(n))
	} else {
		binary.BigEndian.PutUint64(p.buffer[offset:], uint64(n))
	}
}

// GetLong retrieves a 64-bit integer from the buffer at the specified offset.
func (p *Page) GetLong(offset int) int64 {
	return int64(binary.BigEndian.Uint64(p.buffer[offset:]))
}

// SetLong writes a 64-bit integer to the buffer at the specified offset.
func (p *Page) SetLong(offset int, n int64) {
	binary.BigEndian.PutUint64(p.buffer[offset:], uint64(n))
}

// GetShort retrieves a 16-bit integer from the buffer at the specified offset.
func (p *Page) GetShort(offset int) int16 {
	return int16(binary.BigEndian.Uint16(p.buffer[offset:]))
}

func (p *Page) SetShort(offset int, n int16) {
	binary.BigEndian.PutUint16(p.buffer[offset:], uint16(n))
}

func (p *Page) GetBool(offset int) bool {
	return p.buffer[offset] != 0
}

func (p *Page) SetBool(offset int, b bool) {
	if b {
		p.buffer[offset] = 1
	} else {
		p.buffer[offset] = 0
	}
}

// GetBytes retrieves a byte slice from the buffer starting at the specified offset.
func (p *Page) GetBytes(offset int) []byte {
	length := p.GetInt(offset)
	start := offset + utils.IntSize
	end := start + int(length)
	b := make([]byte, length)
	copy(b, p.buffer[start:end])
	return b
}

// SetBytes writes a byte slice to the buffer starting at the specified offset.
func (p *Page) SetBytes(offset int, b []byte) {
	length := len(b)
	p.SetInt(offset, length)
	start := offset + utils.IntSize
	copy(p.buffer[start:], b)
}

// GetString retrieves a string from the buffer at the specified offset.
func (p *Page) GetString(offset int) (string, error) {
	b := p.GetBytes(offset)
	if !utf8.Valid(b) {
		return "", errors.New("invalid UTF-8 encoding")
	}
	return string(b), nil
}

// SetString writes a string to the buffer at the specified offset.
func (p *Page) SetString(offset int, s string) error {
	if !utf8.ValidString(s) {
		return errors.New("string contains invalid UTF-8 characters")
	}
	p.SetBytes(offset, []byte(s))
	return nil
}

// MaxLength calculates the maximum number of bytes required to store a string of a given length.
func MaxLength(strlen int) int {
	return utils.IntSize + strlen*utf8.UTFMax
}

// Contents returns the byte buffer maintained by the Page.
func (p *Page) Contents() []byte {
	return p.buffer
}

// Reset zeroes the page's buffer.
func (p *Page) Reset() {
	for i := range p.buffer {
		p.buffer[i] = 0
	}
}
