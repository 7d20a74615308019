package classcache

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("classcache: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// envelope is the stored form of an entry.
type envelope struct {
	Version string   `cbor:"1,keyasint"` // classgen version that assembled Class
	Release string   `cbor:"2,keyasint"`
	Sum     [32]byte `cbor:"3,keyasint"` // sha256 of Class
	Class   []byte   `cbor:"4,keyasint"`
	Strict  bool     `cbor:"5,keyasint"`
	Passes  int      `cbor:"6,keyasint"`
}

// Store caches class files by the source they were assembled from. Entries
// written by another classgen version, or that fail their checksum, are
// deleted when looked up.
type Store struct {
	cache   Cache
	version string
	logger  zerolog.Logger
}

// NewStore returns a Store over cache for entries produced by version.
func NewStore(cache Cache, version string, logger zerolog.Logger) *Store {
	return &Store{cache: cache, version: version, logger: logger}
}

// Lookup returns the class previously saved for source under p.
func (s *Store) Lookup(source []byte, p Profile) (class []byte, ok bool, err error) {
	key := NewKey(source, p)
	content, ok, err := s.cache.Get(key)
	if err != nil || !ok {
		return nil, false, err
	}
	data, err := io.ReadAll(content)
	_ = content.Close()
	if err != nil {
		return nil, false, err
	}

	var env envelope
	reason := ""
	switch err = cbor.Unmarshal(data, &env); {
	case err != nil:
		reason = err.Error()
	case env.Version != s.version:
		reason = "written by " + env.Version
	case env.Release != p.Release:
		reason = "release " + env.Release
	case env.Strict != p.StrictSwitches || env.Passes != p.MaxLayoutPasses:
		reason = "layout settings changed"
	case sha256.Sum256(env.Class) != env.Sum:
		reason = "checksum mismatch"
	}
	if reason != "" {
		s.logger.Debug().Hex("key", key[:8]).Str("reason", reason).Msg("purging stale cache entry")
		return nil, false, s.cache.Delete(key)
	}
	s.logger.Debug().Hex("key", key[:8]).Int("size", len(env.Class)).Msg("cache hit")
	return env.Class, true, nil
}

// Save stores class as the result of assembling source under p.
func (s *Store) Save(source []byte, p Profile, class []byte) error {
	data, err := encMode.Marshal(&envelope{
		Version: s.version,
		Release: p.Release,
		Sum:     sha256.Sum256(class),
		Class:   class,
		Strict:  p.StrictSwitches,
		Passes:  p.MaxLayoutPasses,
	})
	if err != nil {
		return fmt.Errorf("classcache: marshal entry: %w", err)
	}
	return s.cache.Add(NewKey(source, p), bytes.NewReader(data))
}
