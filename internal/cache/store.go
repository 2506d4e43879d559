// Package cache implements the content-addressed permanent store (spec
// §4.3, component D): sharded on-disk paths keyed by SHA-256, safe for
// concurrent writers; reference counts live in the repository's
// cache_*_files rows, not here. Grounded on the teacher's
// internal/scanner.local_artwork.go (which writes thumbnails to a
// sharded on-disk layout) and internal/repository's transaction-wrapped
// upsert style.
package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/JustinTDCT/cinevault-core/internal/corerr"
	"github.com/JustinTDCT/cinevault-core/internal/hashutil"
)

// lockStripes bounds the number of in-memory per-hash locks held at once;
// hashes are assigned a stripe by their low byte, so two different hashes
// occasionally share a stripe and serialize unnecessarily but never race.
const lockStripes = 256

// Store is the on-disk half of the cache layer. The repository package
// owns the matching cache_*_files rows; Store only knows about bytes and
// paths.
type Store struct {
	root   string
	stripe [lockStripes]sync.Mutex
}

// NewStore constructs a Store rooted at root, creating it if necessary.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, corerr.Transient(fmt.Sprintf("create cache root %s", root), err)
	}
	return &Store{root: root}, nil
}

// PathFor returns the sharded on-disk path for hash/ext (§4.3:
// "{root}/{hash[0:2]}/{hash[2:4]}/{hash}.{ext}").
func (s *Store) PathFor(hash, ext string) string {
	ext = normalizeExt(ext)
	return filepath.Join(s.root, hash[0:2], hash[2:4], hash+ext)
}

func normalizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	if ext[0] != '.' {
		return "." + ext
	}
	return ext
}

func (s *Store) lockFor(hash string) *sync.Mutex {
	var idx uint64
	if len(hash) >= 2 {
		idx, _ = strconv.ParseUint(hash[len(hash)-2:], 16, 8)
	}
	return &s.stripe[int(idx)%lockStripes]
}

// StoreAsset hashes r's contents and writes them to the sharded path for
// that hash, atomically (write-to-temp + rename), unless the path already
// exists (§4.3 dedup). At-most-one concurrent build per hash is enforced
// via a striped in-memory lock: a second caller for the same hash observes
// the finished file and returns without writing.
func (s *Store) StoreAsset(r io.Reader, ext string) (hash string, size int64, err error) {
	tmp, err := os.CreateTemp(s.root, "stage-*")
	if err != nil {
		return "", 0, corerr.Transient("create staging file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed away

	hasher, err := hashutil.ContentHash(io.TeeReader(r, tmp))
	closeErr := tmp.Close()
	if err != nil {
		return "", 0, corerr.Transient("hash asset", err)
	}
	if closeErr != nil {
		return "", 0, corerr.Transient("close staging file", closeErr)
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return "", 0, corerr.Transient("stat staging file", err)
	}
	size = info.Size()
	hash = hasher

	dest := s.PathFor(hash, ext)
	lock := s.lockFor(hash)
	lock.Lock()
	defer lock.Unlock()

	if _, statErr := os.Stat(dest); statErr == nil {
		return hash, size, nil // deduplicated; another writer (or a prior scan) already has it
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", 0, corerr.Transient(fmt.Sprintf("create cache dir for %s", hash), err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", 0, corerr.Transient(fmt.Sprintf("finalize cache file %s", hash), err)
	}
	return hash, size, nil
}

// StoreAssetFromFile ingests the file at path into the content-addressed
// store the same way StoreAsset does, for callers that start with a path on
// disk (e.g. a locally classified file) rather than an open reader.
func (s *Store) StoreAssetFromFile(path, ext string) (hash string, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, corerr.Transient(fmt.Sprintf("open %s for ingest", path), err)
	}
	defer f.Close()
	return s.StoreAsset(f, ext)
}

// Open opens the on-disk file for hash/ext for reading.
func (s *Store) Open(hash, ext string) (*os.File, error) {
	f, err := os.Open(s.PathFor(hash, ext))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, corerr.NotFound(fmt.Sprintf("cache file %s not found", hash))
		}
		return nil, corerr.Transient(fmt.Sprintf("open cache file %s", hash), err)
	}
	return f, nil
}

// Remove deletes the on-disk file for hash/ext. It is the caller's
// responsibility to have first verified ref-count=0 and no library-file
// referrer (§4.3 gc precondition) — Store itself has no notion of
// reference counts, which live in the repository rows.
func (s *Store) Remove(hash, ext string) error {
	path := s.PathFor(hash, ext)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return corerr.Transient(fmt.Sprintf("remove cache file %s", hash), err)
	}
	return nil
}
