// Package imagingtest writes small FITS and TIFF fixtures for tests that
// need real files on disk (fake Siril sessions, inspector tests).
package imagingtest

import (
	"image"
	"image/color"
	"os"
	"testing"

	"github.com/astrogo/fitsio"
	"golang.org/x/image/tiff"
)

// WriteFITS32 writes a single-HDU BITPIX=-32 FITS image of the given size.
// len(data) must equal width*height.
func WriteFITS32(t testing.TB, path string, width, height int, data []float32) {
	t.Helper()
	writeFITS(t, path, -32, []int{width, height}, data)
}

// WriteFITS16 writes a single-HDU BITPIX=16 FITS image.
func WriteFITS16(t testing.TB, path string, width, height int, data []int16) {
	t.Helper()
	writeFITS(t, path, 16, []int{width, height}, data)
}

func writeFITS(t testing.TB, path string, bitpix int, axes []int, data any) {
	t.Helper()

	w, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer w.Close()

	f, err := fitsio.Create(w)
	if err != nil {
		t.Fatalf("fitsio.Create: %v", err)
	}
	defer f.Close()

	img := fitsio.NewImage(bitpix, axes)
	defer img.Close()

	if err := img.Write(data); err != nil {
		t.Fatalf("write image data: %v", err)
	}
	if err := f.Write(img); err != nil {
		t.Fatalf("write HDU: %v", err)
	}
}

// WriteTIFF encodes img as an uncompressed TIFF at path.
func WriteTIFF(t testing.TB, path string, img image.Image) {
	t.Helper()

	w, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer w.Close()

	if err := tiff.Encode(w, img, nil); err != nil {
		t.Fatalf("encode TIFF: %v", err)
	}
}

// Gray16 returns a w×h 16-bit grayscale gradient.
func Gray16(w, h int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16((x + y*w) * 1000)})
		}
	}
	return img
}

// Gray8 returns a w×h 8-bit grayscale image.
func Gray8(w, h int) *image.Gray {
	return image.NewGray(image.Rect(0, 0, w, h))
}

// RGB16 returns a w×h 16-bit-per-channel opaque RGB image.
func RGB16(w, h int) *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA64(x, y, color.RGBA64{R: 1000, G: 2000, B: 3000, A: 0xffff})
		}
	}
	return img
}
