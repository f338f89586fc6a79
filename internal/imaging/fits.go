package imaging

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/astrogo/fitsio"
)

// FITSInfo describes the primary HDU of a FITS file.
type FITSInfo struct {
	// Bitpix is the FITS BITPIX value: 8, 16, 32, 64 for integers,
	// -32 and -64 for IEEE floats.
	Bitpix int `json:"bitpix"`

	// Axes lists NAXISn in order (width, height[, channels]).
	Axes []int `json:"axes"`
}

// Is32Bit reports whether the image holds 32-bit samples (integer or float).
func (i FITSInfo) Is32Bit() bool {
	return i.Bitpix == 32 || i.Bitpix == -32
}

// Pixels returns the number of samples described by Axes.
func (i FITSInfo) Pixels() int {
	if len(i.Axes) == 0 {
		return 0
	}
	n := 1
	for _, a := range i.Axes {
		n *= a
	}
	return n
}

// InspectFITS reads the primary header of the FITS file at path.
func InspectFITS(path string) (FITSInfo, error) {
	var info FITSInfo
	err := withPrimaryHDU(path, func(hdu fitsio.HDU) error {
		hdr := hdu.Header()
		info = FITSInfo{Bitpix: hdr.Bitpix(), Axes: hdr.Axes()}
		return nil
	})
	return info, err
}

// ReadFITSPixels returns the primary image's samples as float64 with
// BSCALE/BZERO applied.
func ReadFITSPixels(path string) ([]float64, FITSInfo, error) {
	var (
		pixels []float64
		info   FITSInfo
	)
	err := withPrimaryHDU(path, func(hdu fitsio.HDU) error {
		img, ok := hdu.(fitsio.Image)
		if !ok {
			return fmt.Errorf("primary HDU of %s is not an image", path)
		}
		hdr := hdu.Header()
		info = FITSInfo{Bitpix: hdr.Bitpix(), Axes: hdr.Axes()}

		scale := cardFloat(hdr, "BSCALE", 1)
		zero := cardFloat(hdr, "BZERO", 0)

		var err error
		pixels, err = decodeSamples(img.Raw(), info.Bitpix, info.Pixels())
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if scale != 1 || zero != 0 {
			for i := range pixels {
				pixels[i] = pixels[i]*scale + zero
			}
		}
		return nil
	})
	return pixels, info, err
}

// withPrimaryHDU opens path and calls fn with the first HDU.
func withPrimaryHDU(path string, fn func(fitsio.HDU) error) error {
	r, err := os.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return fmt.Errorf("failed to open FITS %s: %w", path, err)
	}
	defer f.Close()

	if len(f.HDUs()) == 0 {
		return fmt.Errorf("FITS %s has no HDU", path)
	}
	return fn(f.HDU(0))
}

// cardFloat returns a numeric header value, or def when absent.
func cardFloat(hdr *fitsio.Header, key string, def float64) float64 {
	card := hdr.Get(key)
	if card == nil {
		return def
	}
	switch v := card.Value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

// decodeSamples converts big-endian FITS data to float64 according to BITPIX.
func decodeSamples(raw []byte, bitpix, n int) ([]float64, error) {
	width := abs(bitpix) / 8
	if width == 0 {
		return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
	}
	if len(raw) < n*width {
		return nil, fmt.Errorf("truncated image data: have %d bytes, need %d", len(raw), n*width)
	}

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		b := raw[i*width : (i+1)*width]
		switch bitpix {
		case 8:
			out[i] = float64(b[0])
		case 16:
			out[i] = float64(int16(binary.BigEndian.Uint16(b)))
		case 32:
			out[i] = float64(int32(binary.BigEndian.Uint32(b)))
		case 64:
			out[i] = float64(int64(binary.BigEndian.Uint64(b)))
		case -32:
			out[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
		case -64:
			out[i] = math.Float64frombits(binary.BigEndian.Uint64(b))
		default:
			return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
		}
	}
	return out, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
