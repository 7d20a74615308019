package classcache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sync"
)

// NewFileCache returns a Cache that writes one file per entry into dir. The
// directory is created on the first Add.
func NewFileCache(dir string) Cache {
	return newFileCache(dir)
}

func newFileCache(dir string) *fileCache {
	return &fileCache{dirPath: dir}
}

// fileCache persists entries as files named by the hex encoded key.
type fileCache struct {
	dirPath string
	mux     sync.RWMutex
}

type fileReadCloser struct {
	*os.File
	fc *fileCache
}

func (f *fileCache) path(key Key) string {
	return path.Join(f.dirPath, hex.EncodeToString(key[:]))
}

func (f *fileCache) Get(key Key) (content io.ReadCloser, ok bool, err error) {
	f.mux.RLock()
	unlock := f.mux.RUnlock
	defer func() {
		if unlock != nil {
			unlock()
		}
	}()

	file, err := os.Open(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	// Writers wait until the returned content is closed.
	unlock = nil
	return &fileReadCloser{File: file, fc: f}, true, nil
}

// Close wraps the os.File Close to release the read lock on fileCache.
func (f *fileReadCloser) Close() (err error) {
	defer f.fc.mux.RUnlock()
	err = f.File.Close()
	return
}

func (f *fileCache) Add(key Key, content io.Reader) (err error) {
	f.mux.Lock()
	defer f.mux.Unlock()

	if st, statErr := os.Stat(f.dirPath); errors.Is(statErr, os.ErrNotExist) {
		if err = os.MkdirAll(f.dirPath, 0o700); err != nil {
			return fmt.Errorf("classcache: create directory %s: %w", f.dirPath, err)
		}
	} else if statErr != nil {
		return statErr
	} else if !st.IsDir() {
		return fmt.Errorf("classcache: expected dir but %s is a file", f.dirPath)
	}

	// Write to a temporary file first so readers never see a partial entry.
	tmp, err := os.CreateTemp(f.dirPath, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck
	if _, err = io.Copy(tmp, content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path(key))
}

func (f *fileCache) Delete(key Key) (err error) {
	f.mux.Lock()
	defer f.mux.Unlock()

	err = os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	return
}
