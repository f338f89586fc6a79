package imaging

import (
	"image"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarises the finite samples of an image.
type Stats struct {
	Count  int     `json:"count"`
	Blank  int     `json:"blank"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Median float64 `json:"median"`
}

// ComputeStats summarises samples. NaN and infinite samples (FITS blanks)
// are counted in Blank and excluded from every other figure. The input
// slice is not modified.
func ComputeStats(samples []float64) Stats {
	finite := make([]float64, 0, len(samples))
	for _, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		finite = append(finite, v)
	}

	s := Stats{Count: len(finite), Blank: len(samples) - len(finite)}
	if len(finite) == 0 {
		return s
	}

	s.Min = floats.Min(finite)
	s.Max = floats.Max(finite)
	s.Mean, s.StdDev = stat.MeanStdDev(finite, nil)
	if len(finite) == 1 {
		s.StdDev = 0
	}

	sort.Float64s(finite)
	s.Median = median(finite)
	return s
}

// median returns the middle value of sorted, averaging the two middle
// values for an even count. stat.Quantile with the empirical CDF returns
// the lower one instead.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// FITSStats reads the FITS file at path and summarises its samples.
func FITSStats(path string) (Stats, error) {
	pixels, _, err := ReadFITSPixels(path)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(pixels), nil
}

// ImageStats summarises an image's luminance, normalised to [0, 1].
func ImageStats(img image.Image) Stats {
	b := img.Bounds()
	samples := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			samples = append(samples, float64(g.Y)/math.MaxUint16)
		}
	}
	return ComputeStats(samples)
}
