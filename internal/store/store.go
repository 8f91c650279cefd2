// Package store content-addresses extracted file versions.
//
// Every blob is keyed by the lowercase hex SHA-256 of its raw bytes and is
// written at most once. Writes go through a temporary file followed by a
// rename, so an interrupted run never leaves a truncated blob behind.
package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pierrec/lz4/v4"
)

// ErrNotFound is returned by Get for an unknown hash.
var ErrNotFound = errors.New("blob not found")

// Compression selects how blob files are encoded on disk.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionLZ4  Compression = "lz4"
)

// ParseCompression parses a compression name. The empty string means none.
func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionLZ4:
		return CompressionLZ4, nil
	default:
		return "", fmt.Errorf("unknown compression %q", s)
	}
}

// Store persists blobs by content address.
type Store interface {
	// Put stores data unless its hash is already present and returns the hash.
	Put(data []byte) (string, error)
	// Has reports whether a blob with the given hash is stored.
	Has(hash string) bool
	// Get returns the uncompressed bytes of a stored blob.
	Get(hash string) ([]byte, error)
	// Stats returns counters for the blobs written through this store.
	Stats() Stats
}

// Stats counts store activity.
type Stats struct {
	Written int   // blobs materialized by this store
	Reused  int   // Put calls satisfied by an existing blob
	Bytes   int64 // uncompressed bytes written
}

// Hash returns the content address of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// BlobStore writes blobs to a billy filesystem. It is safe for concurrent use.
type BlobStore struct {
	fs          billy.Filesystem
	namespace   string
	compression Compression

	mu    sync.RWMutex
	known map[string]struct{}
	stats Stats
}

// Option configures a BlobStore.
type Option func(*BlobStore)

// WithNamespace stores blobs under a sub-directory, typically one per
// repository, so runs sharing a directory do not share content.
func WithNamespace(ns string) Option {
	return func(s *BlobStore) { s.namespace = ns }
}

// WithCompression sets the on-disk encoding of new blobs.
func WithCompression(c Compression) Option {
	return func(s *BlobStore) { s.compression = c }
}

// New creates a store rooted at fs.
func New(fs billy.Filesystem, opts ...Option) *BlobStore {
	s := &BlobStore{
		fs:          fs,
		compression: CompressionNone,
		known:       make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a store rooted at the directory dir on the local disk.
func Open(dir string, opts ...Option) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return New(osfs.New(dir), opts...), nil
}

// Put implements Store.
func (s *BlobStore) Put(data []byte) (string, error) {
	hash := Hash(data)

	s.mu.RLock()
	_, ok := s.known[hash]
	s.mu.RUnlock()
	if ok {
		s.reused()
		return hash, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.known[hash]; ok {
		s.stats.Reused++
		return hash, nil
	}
	if s.exists(hash) {
		s.known[hash] = struct{}{}
		s.stats.Reused++
		return hash, nil
	}
	if err := s.write(hash, data); err != nil {
		return "", err
	}
	s.known[hash] = struct{}{}
	s.stats.Written++
	s.stats.Bytes += int64(len(data))
	return hash, nil
}

func (s *BlobStore) reused() {
	s.mu.Lock()
	s.stats.Reused++
	s.mu.Unlock()
}

// Has implements Store.
func (s *BlobStore) Has(hash string) bool {
	s.mu.RLock()
	_, ok := s.known[hash]
	s.mu.RUnlock()
	if ok {
		return true
	}
	return s.exists(hash)
}

// Get implements Store.
func (s *BlobStore) Get(hash string) ([]byte, error) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4} {
		data, err := s.read(s.filename(hash, c), c)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read blob %s: %w", hash, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
}

func (s *BlobStore) read(name string, c Compression) ([]byte, error) {
	f, err := s.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if c == CompressionLZ4 {
		r = lz4.NewReader(f)
	}
	return io.ReadAll(r)
}

// Stats implements Store.
func (s *BlobStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *BlobStore) filename(hash string, c Compression) string {
	name := hash
	if c == CompressionLZ4 {
		name += ".lz4"
	}
	if s.namespace == "" {
		return name
	}
	return path.Join(s.namespace, name)
}

func (s *BlobStore) exists(hash string) bool {
	for _, c := range []Compression{CompressionNone, CompressionLZ4} {
		if _, err := s.fs.Stat(s.filename(hash, c)); err == nil {
			return true
		}
	}
	return false
}

func (s *BlobStore) write(hash string, data []byte) error {
	dir := "."
	if s.namespace != "" {
		dir = s.namespace
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}

	tmp, err := s.fs.TempFile(dir, ".tmp-"+hash[:12]+"-")
	if err != nil {
		return fmt.Errorf("create temporary blob: %w", err)
	}
	tmpName := tmp.Name()

	if err := encode(tmp, data, s.compression); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("write blob %s: %w", hash, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("close blob %s: %w", hash, err)
	}
	if err := s.fs.Rename(tmpName, s.filename(hash, s.compression)); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("commit blob %s: %w", hash, err)
	}
	return nil
}

func encode(w io.Writer, data []byte, c Compression) error {
	if c != CompressionLZ4 {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	}
	zw := lz4.NewWriter(w)
	if _, err := zw.Write(data); err != nil {
		return err
	}
	return zw.Close()
}

// HashOnlyStore computes content addresses without persisting anything.
type HashOnlyStore struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	stats Stats
}

// NewHashOnly creates a HashOnlyStore.
func NewHashOnly() *HashOnlyStore {
	return &HashOnlyStore{seen: make(map[string]struct{})}
}

// Put implements Store.
func (s *HashOnlyStore) Put(data []byte) (string, error) {
	hash := Hash(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[hash]; ok {
		s.stats.Reused++
		return hash, nil
	}
	s.seen[hash] = struct{}{}
	s.stats.Written++
	s.stats.Bytes += int64(len(data))
	return hash, nil
}

// Has implements Store.
func (s *HashOnlyStore) Has(hash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[hash]
	return ok
}

// Get implements Store. Content is never retained.
func (s *HashOnlyStore) Get(hash string) ([]byte, error) {
	return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
}

// Stats implements Store.
func (s *HashOnlyStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

var (
	_ Store = (*BlobStore)(nil)
	_ Store = (*HashOnlyStore)(nil)
)
