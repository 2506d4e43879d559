// Package hashutil computes the three hash flavours the cache layer and
// fact gatherer need (spec §4.1, §4.3): a full content hash for content
// addressing, a cheap quick-hash for skipping re-probes, and a perceptual
// image hash for duplicate-asset detection.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// quickHashSampleSize is the number of bytes read from the head and tail of
// a file for the quick-hash (§4.1: "first 64 KiB ‖ last 64 KiB ‖ size").
const quickHashSampleSize = 64 * 1024

// ContentHash returns the SHA-256 hex digest of r, the content address used
// throughout the cache store (§4.3). It consumes r to EOF.
func ContentHash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ContentHashFile hashes the file at path in one pass.
func ContentHashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// QuickHash computes a cheap identity hash for the video probe cache
// (§4.1): xxhash64 over the first and last quickHashSampleSize bytes of the
// file plus its size, formatted as a fixed-width hex string. Two different
// files colliding on QuickHash is possible (it samples, not digests, the
// whole file); callers that need a correctness guarantee must fall back to
// ContentHashFile on a QuickHash hit (§8: "quick-hash collision fallback").
func QuickHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()

	digest := xxhash.New()
	fmt.Fprintf(digest, "%d:", size)

	head := make([]byte, quickHashSampleSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read head of %s: %w", path, err)
	}
	digest.Write(head[:n])

	if size > quickHashSampleSize {
		tailStart := size - quickHashSampleSize
		if tailStart < int64(n) {
			tailStart = int64(n)
		}
		if _, err := f.Seek(tailStart, io.SeekStart); err != nil {
			return "", fmt.Errorf("seek tail of %s: %w", path, err)
		}
		tail, err := io.ReadAll(f)
		if err != nil {
			return "", fmt.Errorf("read tail of %s: %w", path, err)
		}
		digest.Write(tail)
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}

// DefaultPHashThreshold is the largest Hamming distance at which two
// images are still treated as duplicates (§9 open question, resolved in
// SPEC_FULL §5: Hamming ≤ 5 over a 64-bit dHash).
const DefaultPHashThreshold = 5

// dHashSize is the width/height of the downscaled comparison grid; a dHash
// compares (hashSize-1)*(hashSize-1) adjacent-pixel brightness deltas, packed
// into a 64-bit value for hashSize=9 (8x8 = 64 horizontal comparisons).
const dHashSize = 9

// PerceptualHash computes a 64-bit difference hash (dHash) of img: the image
// is downscaled to 9x8 grayscale and each pixel is compared to its
// rightward neighbour. This is cheap, rotation-insensitive to resizing, and
// stable under re-encoding — the same algorithm family the teacher's video
// fingerprinter (internal/fingerprint) uses for frame hashes, applied here
// to still images instead of sampled video frames.
func PerceptualHash(img image.Image) uint64 {
	gray := grayscaleResize(img, dHashSize, dHashSize-1)

	var hash uint64
	bit := uint(0)
	for y := 0; y < dHashSize-1; y++ {
		for x := 0; x < dHashSize-1; x++ {
			left := gray[y*dHashSize+x]
			right := gray[y*dHashSize+x+1]
			if left < right {
				hash |= 1 << bit
			}
			bit++
		}
	}
	return hash
}

// grayscaleResize performs a simple nearest-neighbour downscale to w x h and
// returns a row-major slice of 8-bit luma values. Good enough for a
// dedup-only perceptual hash; not used for any user-visible rendering.
func grayscaleResize(img image.Image, w, h int) []uint8 {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		sy := bounds.Min.Y + y*srcH/h
		for x := 0; x < w; x++ {
			sx := bounds.Min.X + x*srcW/w
			r, g, b, _ := img.At(sx, sy).RGBA()
			// Rec. 601 luma, on the 16-bit RGBA components RGBA() returns.
			lum := (299*r + 587*g + 114*b) / 1000
			out[y*w+x] = uint8(lum >> 8)
		}
	}
	return out
}

// PerceptualHashFile decodes the image at path and computes its dHash, for
// callers that only have a filesystem path (the classifier/repository
// layers never hold a decoded image.Image).
func PerceptualHashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	return PerceptualHash(img), nil
}

// HammingDistance64 returns the number of differing bits between a and b.
func HammingDistance64(a, b uint64) int {
	x := a ^ b
	count := 0
	for x != 0 {
		count++
		x &= x - 1
	}
	return count
}
