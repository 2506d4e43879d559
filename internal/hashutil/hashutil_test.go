package hashutil

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestContentHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	hash, size, err := ContentHashFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len("hello world")) {
		t.Errorf("size = %d, want %d", size, len("hello world"))
	}
	wantHash, err := ContentHash(strings.NewReader("hello world"))
	if err != nil {
		t.Fatal(err)
	}
	if hash != wantHash {
		t.Errorf("hash = %s, want %s", hash, wantHash)
	}
}

func TestQuickHashStable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	if err := os.WriteFile(path, make([]byte, 128*1024), 0o644); err != nil {
		t.Fatal(err)
	}

	h1, err := QuickHash(path)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := QuickHash(path)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("QuickHash not stable across calls: %s vs %s", h1, h2)
	}
}

func solidImage(c color.Color, w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPerceptualHashIdenticalImages(t *testing.T) {
	a := solidImage(color.RGBA{R: 10, G: 10, B: 200, A: 255}, 64, 64)
	b := solidImage(color.RGBA{R: 10, G: 10, B: 200, A: 255}, 64, 64)

	if PerceptualHash(a) != PerceptualHash(b) {
		t.Errorf("identical solid-color images should produce the same dHash")
	}
}

func TestPerceptualHashDissimilarImages(t *testing.T) {
	a := solidImage(color.RGBA{R: 0, G: 0, B: 0, A: 255}, 64, 64)
	b := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x/8+y/8)%2 == 0 {
				b.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			} else {
				b.Set(x, y, color.RGBA{A: 255})
			}
		}
	}

	if dist := HammingDistance64(PerceptualHash(a), PerceptualHash(b)); dist <= DefaultPHashThreshold {
		t.Errorf("checkerboard vs solid image distance = %d, want > %d", dist, DefaultPHashThreshold)
	}
}

func TestHammingDistance64(t *testing.T) {
	cases := []struct {
		a, b uint64
		want int
	}{
		{0, 0, 0},
		{0, 1, 1},
		{0b1111, 0b0000, 4},
		{^uint64(0), 0, 64},
	}
	for _, c := range cases {
		if got := HammingDistance64(c.a, c.b); got != c.want {
			t.Errorf("HammingDistance64(%b, %b) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
