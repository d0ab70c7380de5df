// Package imaging implements the two synchronous image operations the
// HTTP edge owns directly rather than delegating to a worker process:
// applying an axis-aligned crop and detecting auto-crop content
// bounds. Decoder registration is grounded on golang.org/x/image,
// which is the teacher's own choice for extended format support
// (webp/tiff/bmp) beyond the stdlib's jpeg/png/gif.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Rect is an axis-aligned crop rectangle in source-image pixel space.
type Rect struct {
	X, Y, W, H int
}

// ParseRect accepts the axis-aligned form of CropRect ("x,y,w,h"); the
// ellipse (E:) and perspective (P:) forms are opaque to the scheduler
// and the crop worker per §6, but the synchronous /photos/:id/crop
// endpoint only ever receives what the editor UI's rectangle tool
// produces, so only the axis-aligned form is handled here.
func ParseRect(cropRect string) (Rect, error) {
	parts := strings.Split(cropRect, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("cropRect must be x,y,w,h, got %q", cropRect)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Rect{}, fmt.Errorf("cropRect component %q is not an integer", p)
		}
		vals[i] = v
	}
	return Rect{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}, nil
}

// Decode sniffs the registered image codecs and returns the decoded
// image plus its format name.
func Decode(content []byte) (image.Image, string, error) {
	return image.Decode(bytes.NewReader(content))
}

// Apply crops img to rect, clamped to the source bounds, and encodes
// the result as PNG (stage outputs and crop results are always PNG
// per §4.1's fixed-extension rule).
func Apply(content []byte, rect Rect) ([]byte, error) {
	img, _, err := Decode(content)
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}

	bounds := img.Bounds()
	x0 := clamp(rect.X, bounds.Min.X, bounds.Max.X)
	y0 := clamp(rect.Y, bounds.Min.Y, bounds.Max.Y)
	x1 := clamp(rect.X+rect.W, bounds.Min.X, bounds.Max.X)
	y1 := clamp(rect.Y+rect.H, bounds.Min.Y, bounds.Max.Y)
	if x1 <= x0 || y1 <= y0 {
		return nil, fmt.Errorf("imaging: empty crop rect after clamping to bounds")
	}

	cropped := image.NewRGBA(image.Rect(0, 0, x1-x0, y1-y0))
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			cropped.Set(x-x0, y-y0, img.At(x, y))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("imaging: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AutoCropBounds implements the heuristic content-bounds detector for
// GET /auto-crop/:photoId: it finds the smallest rectangle containing
// every pixel that differs from the image's border/background color
// by more than a small tolerance, a common trim-whitespace heuristic.
func AutoCropBounds(content []byte) (Rect, error) {
	img, _, err := Decode(content)
	if err != nil {
		return Rect{}, fmt.Errorf("imaging: decode: %w", err)
	}
	bounds := img.Bounds()
	bg := img.At(bounds.Min.X, bounds.Min.Y)

	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X, bounds.Min.Y
	found := false

	const tolerance = 24
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if colorDistance(img.At(x, y), bg) <= tolerance {
				continue
			}
			found = true
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x+1 > maxX {
				maxX = x + 1
			}
			if y+1 > maxY {
				maxY = y + 1
			}
		}
	}
	if !found {
		return Rect{X: bounds.Min.X, Y: bounds.Min.Y, W: bounds.Dx(), H: bounds.Dy()}, nil
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}, nil
}

func colorDistance(a, b color.Color) int {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	dr := diff16(ar, br)
	dg := diff16(ag, bg)
	db := diff16(ab, bb)
	// RGBA() returns 16-bit channels; the summed difference is scaled
	// down to 8-bit and averaged so the tolerance constant is meaningful.
	return (dr + dg + db) >> 8 / 3
}

func diff16(a, b uint32) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
