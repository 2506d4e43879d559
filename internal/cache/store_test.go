package cache

import (
	"strings"
	"testing"
)

func TestStoreAssetDedup(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	hash1, size1, err := s.StoreAsset(strings.NewReader("hello world"), ".txt")
	if err != nil {
		t.Fatal(err)
	}
	if size1 != int64(len("hello world")) {
		t.Errorf("size = %d, want %d", size1, len("hello world"))
	}

	hash2, size2, err := s.StoreAsset(strings.NewReader("hello world"), ".txt")
	if err != nil {
		t.Fatal(err)
	}
	if hash1 != hash2 || size1 != size2 {
		t.Errorf("expected identical hash/size on dedup, got %s/%d vs %s/%d", hash1, size1, hash2, size2)
	}

	f, err := s.Open(hash1, ".txt")
	if err != nil {
		t.Fatalf("expected stored file to be openable: %v", err)
	}
	f.Close()
}

func TestStoreAssetShardedPath(t *testing.T) {
	s := &Store{root: "/cache"}
	path := s.PathFor("abcdef1234", ".jpg")
	want := "/cache/ab/cd/abcdef1234.jpg"
	if path != want {
		t.Errorf("PathFor = %q, want %q", path, want)
	}
}
