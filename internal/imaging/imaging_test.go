package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func checker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.RGBA{255, 0, 0, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 0, 255, 255})
			}
		}
	}
	return img
}

func TestDecodePNGAndJPEG(t *testing.T) {
	var pbuf, jbuf bytes.Buffer
	if err := png.Encode(&pbuf, checker(8, 4)); err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(&jbuf, checker(8, 4), nil); err != nil {
		t.Fatal(err)
	}
	img, format, err := Decode(pbuf.Bytes())
	if err != nil || format != "png" || img.Bounds().Dx() != 8 {
		t.Fatalf("png decode: %v %q %v", err, format, img)
	}
	if _, format, err = Decode(jbuf.Bytes()); err != nil || format != "jpeg" {
		t.Fatalf("jpeg decode: %v %q", err, format)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, in := range [][]byte{nil, []byte("not an image")} {
		_, _, err := Decode(in)
		if !errors.Is(err, ErrDecode) {
			t.Fatalf("expected ErrDecode, got %v", err)
		}
		var de *DecodeError
		if !errors.As(err, &de) || de.Size != len(in) {
			t.Fatalf("expected DecodeError with size %d, got %v", len(in), err)
		}
	}
}

func TestCropClampsAndRebases(t *testing.T) {
	src := checker(10, 10)
	out := Crop(src, image.Rect(5, 5, 20, 20))
	if out.Bounds() != image.Rect(0, 0, 5, 5) {
		t.Fatalf("crop bounds = %v", out.Bounds())
	}
	if out.RGBAAt(0, 0) != src.RGBAAt(5, 5) {
		t.Fatalf("crop pixel mismatch")
	}

	// A source whose origin is not (0,0) is cropped in its own coordinates.
	off := checker(30, 30).SubImage(image.Rect(10, 10, 30, 30)).(*image.RGBA)
	out = Crop(off, image.Rect(12, 14, 22, 40))
	if out.Bounds() != image.Rect(0, 0, 10, 16) {
		t.Fatalf("offset crop bounds = %v", out.Bounds())
	}
	if out.RGBAAt(0, 0) != off.RGBAAt(12, 14) {
		t.Fatalf("offset crop pixel mismatch")
	}
}

func TestScaleAndFit(t *testing.T) {
	src := checker(100, 50)
	if b := Scale(src, 10, 0).Bounds(); b.Dx() != 10 || b.Dy() != 1 {
		t.Fatalf("scale bounds = %v", b)
	}
	if b := Fit(src, 20, 20).Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Fatalf("fit bounds = %v", b)
	}
	if b := Fit(src, 500, 500).Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("fit must not upscale, got %v", b)
	}
}

func TestEncodePNGRoundTrip(t *testing.T) {
	b, err := EncodePNG(checker(3, 3))
	if err != nil {
		t.Fatal(err)
	}
	img, _, err := Decode(b)
	if err != nil || img.Bounds().Dx() != 3 {
		t.Fatalf("round trip failed: %v", err)
	}
}
