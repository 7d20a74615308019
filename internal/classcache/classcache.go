// Package classcache persists assembled class files across runs of the
// classgen CLI.
package classcache

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
)

// Cache is the interface for class file caches.
//
// Since these methods are concurrently accessed, the implementations must be
// Goroutine-safe.
//
// See NewFileCache for the file system implementation.
type Cache interface {
	// Get returns the content stored by Add for key. ok is false with a nil
	// error when there is no such entry. The caller closes content.
	Get(key Key) (content io.ReadCloser, ok bool, err error)
	// Add stores content for key, replacing any previous entry.
	Add(key Key, content io.Reader) (err error)
	// Delete removes the entry for key. Deleting a missing entry is not an
	// error.
	Delete(key Key) (err error)
}

// Key represents the 256-bit unique identifier assigned to each cache content.
type Key = [sha256.Size]byte

// Profile holds the settings besides the source that decide what a class
// assembles to, or whether it assembles at all.
type Profile struct {
	// Release is the Java release whose class file version is written.
	Release string
	// StrictSwitches rejects malformed switches when true.
	StrictSwitches bool
	// MaxLayoutPasses bounds the layout fixed point.
	MaxLayoutPasses int
}

// NewKey returns the key of a class assembled from source under p.
func NewKey(source []byte, p Profile) Key {
	h := sha256.New()
	h.Write([]byte(p.Release))
	h.Write([]byte{0})
	var b [9]byte
	if p.StrictSwitches {
		b[0] = 1
	}
	binary.LittleEndian.PutUint64(b[1:], uint64(p.MaxLayoutPasses))
	h.Write(b[:])
	h.Write(source)
	var k Key
	h.Sum(k[:0])
	return k
}
