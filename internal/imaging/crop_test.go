package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// checkerboard draws a solid background with a distinct rectangle
// painted in the middle, used both as a crop fixture and to exercise
// AutoCropBounds' content-detection heuristic.
func checkerboard(w, h int, bg, fg color.RGBA, fgRect image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (image.Point{X: x, Y: y}).In(fgRect) {
				img.Set(x, y, fg)
			} else {
				img.Set(x, y, bg)
			}
		}
	}
	return img
}

func TestParseRectParsesAxisAlignedForm(t *testing.T) {
	rect, err := ParseRect("10, 20, 30, 40")
	if err != nil {
		t.Fatalf("ParseRect: %v", err)
	}
	want := Rect{X: 10, Y: 20, W: 30, H: 40}
	if rect != want {
		t.Errorf("rect = %+v, want %+v", rect, want)
	}
}

func TestParseRectRejectsMalformedInput(t *testing.T) {
	cases := []string{"", "1,2,3", "1,2,3,4,5", "a,b,c,d"}
	for _, c := range cases {
		if _, err := ParseRect(c); err == nil {
			t.Errorf("ParseRect(%q) should have failed", c)
		}
	}
}

func TestApplyCropsToRequestedRegion(t *testing.T) {
	bg := color.RGBA{R: 0, G: 0, B: 0, A: 255}
	fg := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	src := checkerboard(20, 20, bg, fg, image.Rect(5, 5, 15, 15))

	out, err := Apply(encodePNG(t, src), Rect{X: 5, Y: 5, W: 10, H: 10})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	cropped, _, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode(cropped): %v", err)
	}
	b := cropped.Bounds()
	if b.Dx() != 10 || b.Dy() != 10 {
		t.Fatalf("cropped bounds = %v, want 10x10", b)
	}
	r, g, bl, _ := cropped.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 255 || bl>>8 != 255 {
		t.Errorf("cropped pixel (0,0) = %v, want white", cropped.At(0, 0))
	}
}

func TestApplyClampsRectToImageBounds(t *testing.T) {
	bg := color.RGBA{R: 10, G: 10, B: 10, A: 255}
	src := checkerboard(10, 10, bg, bg, image.Rect(0, 0, 0, 0))

	out, err := Apply(encodePNG(t, src), Rect{X: -5, Y: -5, W: 1000, H: 1000})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	cropped, _, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b := cropped.Bounds(); b.Dx() != 10 || b.Dy() != 10 {
		t.Errorf("bounds = %v, want clamped to the original 10x10", b)
	}
}

func TestApplyRejectsEmptyRectAfterClamping(t *testing.T) {
	bg := color.RGBA{R: 1, G: 1, B: 1, A: 255}
	src := checkerboard(10, 10, bg, bg, image.Rect(0, 0, 0, 0))

	if _, err := Apply(encodePNG(t, src), Rect{X: 100, Y: 100, W: 5, H: 5}); err == nil {
		t.Error("expected an error for a rect entirely outside the image bounds")
	}
}

func TestAutoCropBoundsFindsContentRegion(t *testing.T) {
	bg := color.RGBA{R: 0, G: 0, B: 0, A: 255}
	fg := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	contentRect := image.Rect(4, 6, 16, 18)
	src := checkerboard(20, 24, bg, fg, contentRect)

	got, err := AutoCropBounds(encodePNG(t, src))
	if err != nil {
		t.Fatalf("AutoCropBounds: %v", err)
	}
	want := Rect{X: contentRect.Min.X, Y: contentRect.Min.Y, W: contentRect.Dx(), H: contentRect.Dy()}
	if got != want {
		t.Errorf("AutoCropBounds = %+v, want %+v", got, want)
	}
}

func TestAutoCropBoundsReturnsFullImageWhenUniform(t *testing.T) {
	bg := color.RGBA{R: 50, G: 50, B: 50, A: 255}
	src := checkerboard(12, 8, bg, bg, image.Rect(0, 0, 0, 0))

	got, err := AutoCropBounds(encodePNG(t, src))
	if err != nil {
		t.Fatalf("AutoCropBounds: %v", err)
	}
	want := Rect{X: 0, Y: 0, W: 12, H: 8}
	if got != want {
		t.Errorf("AutoCropBounds on a uniform image = %+v, want full bounds %+v", got, want)
	}
}
