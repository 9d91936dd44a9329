// Package phash computes perceptual fingerprints of images using the block
// mean value hash (blockhash) algorithm and compares them by Hamming distance.
package phash

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"math/bits"
	"sort"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// GridSize is the edge of the sampling grid. Each cell contributes one
	// bit, so a fingerprint carries GridSize*GridSize bits.
	GridSize = 16

	// FingerprintLen is the fingerprint length in hex nibbles.
	FingerprintLen = GridSize * GridSize / 4

	// DefaultDistanceThreshold is the Hamming distance below which two
	// fingerprints are considered the same picture. Strict less-than:
	// a distance of exactly this value is not a match.
	DefaultDistanceThreshold = 4
)

var (
	// ErrDecode indicates corrupt or unsupported image data.
	ErrDecode = errors.New("image decode failed")

	// ErrLengthMismatch indicates fingerprints from different codec
	// configurations, which are never comparable.
	ErrLengthMismatch = errors.New("fingerprint length mismatch")
)

// Fingerprint is a fixed-length hex-encoded perceptual hash. Immutable once
// computed; two fingerprints are comparable only if equal length.
type Fingerprint string

// Compute derives the fingerprint for raw image bytes. Identical bytes
// always yield an identical fingerprint; near-identical images yield
// fingerprints with a small Hamming distance.
func Compute(imageData []byte) (Fingerprint, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	values := cellValues(img)
	hashBits := bisectBands(values)
	return bitsToHex(hashBits), nil
}

// Distance computes the bitwise Hamming distance between two fingerprints.
// Fails closed on unequal lengths, never truncates or pads.
func Distance(a, b Fingerprint) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(a), len(b))
	}

	distance := 0
	for i := range len(a) {
		na, err := hexNibble(a[i])
		if err != nil {
			return 0, err
		}
		nb, err := hexNibble(b[i])
		if err != nil {
			return 0, err
		}
		distance += bits.OnesCount8(na ^ nb)
	}
	return distance, nil
}

// cellValues resizes the image to the sampling grid, ignoring aspect ratio
// (forced stretch, not crop), and returns per-cell intensity values in
// row-major order. Fully transparent pixels count as white.
func cellValues(img image.Image) []int {
	dst := image.NewRGBA(image.Rect(0, 0, GridSize, GridSize))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	values := make([]int, GridSize*GridSize)
	for y := range GridSize {
		for x := range GridSize {
			off := dst.PixOffset(x, y)
			r, g, b, a := dst.Pix[off], dst.Pix[off+1], dst.Pix[off+2], dst.Pix[off+3]
			if a == 0 {
				values[y*GridSize+x] = 765 // 3 * 255
			} else {
				values[y*GridSize+x] = int(r) + int(g) + int(b)
			}
		}
	}
	return values
}

// bisectBands converts cell values to bits. The grid is split into four
// horizontal bands and each cell is compared against its band's median,
// which makes the hash robust against global brightness shifts.
func bisectBands(values []int) []byte {
	const halfCellValue = 256 * 3 / 2

	result := make([]byte, len(values))
	bandSize := len(values) / 4
	for band := range 4 {
		m := median(values[band*bandSize : (band+1)*bandSize])
		for i := band * bandSize; i < (band+1)*bandSize; i++ {
			v := float64(values[i])
			if v > m || (math.Abs(v-m) < 1 && m > halfCellValue) {
				result[i] = 1
			}
		}
	}
	return result
}

func median(values []int) float64 {
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return float64(sorted[n/2-1]+sorted[n/2]) / 2
	}
	return float64(sorted[n/2])
}

func bitsToHex(hashBits []byte) Fingerprint {
	const hexDigits = "0123456789abcdef"

	out := make([]byte, 0, len(hashBits)/4)
	for i := 0; i < len(hashBits); i += 4 {
		nibble := hashBits[i]<<3 | hashBits[i+1]<<2 | hashBits[i+2]<<1 | hashBits[i+3]
		out = append(out, hexDigits[nibble])
	}
	return Fingerprint(out)
}

func hexNibble(c byte) (uint8, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex digit %q in fingerprint", c)
	}
}
