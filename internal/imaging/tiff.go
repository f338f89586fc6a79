package imaging

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/tiff"

	"github.com/shinji-kodama/starsplit/internal/model"
)

// TIFFInfo describes a TIFF file's layout.
type TIFFInfo struct {
	Mode   model.TIFFMode `json:"mode"`
	Width  int            `json:"width"`
	Height int            `json:"height"`
}

// InspectTIFF decodes the TIFF header at path and classifies its colour
// mode. Only the header is read. A file that is not a decodable TIFF
// returns ModeUnknown together with the decode error.
func InspectTIFF(path string) (TIFFInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return TIFFInfo{Mode: model.ModeUnknown}, err
	}
	defer f.Close()

	cfg, err := tiff.DecodeConfig(f)
	if err != nil {
		return TIFFInfo{Mode: model.ModeUnknown}, fmt.Errorf("failed to decode TIFF %s: %w", path, err)
	}

	return TIFFInfo{
		Mode:   classifyModel(cfg.ColorModel),
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// classifyModel maps the colour model chosen by the TIFF decoder to a
// TIFFMode. The decoder picks RGBA/NRGBA models for RGB data with or
// without alpha, so both count as RGB.
func classifyModel(m color.Model) model.TIFFMode {
	// Paletted images carry a color.Palette, which is a slice and
	// cannot be compared with ==.
	if _, ok := m.(color.Palette); ok {
		return model.ModeUnknown
	}

	switch m {
	case color.Gray16Model:
		return model.ModeGray16
	case color.GrayModel:
		return model.ModeGray8
	case color.RGBA64Model, color.NRGBA64Model:
		return model.ModeRGB16
	case color.RGBAModel, color.NRGBAModel:
		return model.ModeRGB
	default:
		return model.ModeUnknown
	}
}

// DecodeTIFF fully decodes a TIFF image. Used by "inspect --stats".
func DecodeTIFF(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TIFF %s: %w", path, err)
	}
	return img, nil
}
