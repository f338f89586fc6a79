package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDeriveArtifacts verifies that every derived name shares the source
// basename and carries the expected fixed suffix.
func TestDeriveArtifacts(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   Artifacts
	}{
		{
			name:   "fits extension",
			source: "M42.fits",
			want: Artifacts{
				Source:       "M42.fits",
				Base:         "M42",
				TIFF:         "M42.tif",
				StarlessTIFF: "M42_starless.tif",
				StarlessName: "M42_starless",
				StarlessFITS: "M42_starless.fit",
				StarsName:    "M42_stars",
				StarsFITS:    "M42_stars.fit",
				StarsTIFF:    "M42_stars.tif",
			},
		},
		{
			name:   "fit extension with directory",
			source: "/data/nights/ngc7000.fit",
			want: Artifacts{
				Source:       "/data/nights/ngc7000.fit",
				Base:         "/data/nights/ngc7000",
				TIFF:         "/data/nights/ngc7000.tif",
				StarlessTIFF: "/data/nights/ngc7000_starless.tif",
				StarlessName: "/data/nights/ngc7000_starless",
				StarlessFITS: "/data/nights/ngc7000_starless.fit",
				StarsName:    "/data/nights/ngc7000_stars",
				StarsFITS:    "/data/nights/ngc7000_stars.fit",
				StarsTIFF:    "/data/nights/ngc7000_stars.tif",
			},
		},
		{
			name:   "dots in basename are preserved",
			source: "stack.2024.10.fits",
			want: Artifacts{
				Source:       "stack.2024.10.fits",
				Base:         "stack.2024.10",
				TIFF:         "stack.2024.10.tif",
				StarlessTIFF: "stack.2024.10_starless.tif",
				StarlessName: "stack.2024.10_starless",
				StarlessFITS: "stack.2024.10_starless.fit",
				StarsName:    "stack.2024.10_stars",
				StarsFITS:    "stack.2024.10_stars.fit",
				StarsTIFF:    "stack.2024.10_stars.tif",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveArtifacts(tt.source, NamingOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestDeriveArtifacts_CustomNaming checks that NamingOptions override the
// defaults, including a leading dot on the FITS extension.
func TestDeriveArtifacts_CustomNaming(t *testing.T) {
	got, err := DeriveArtifacts("m31.fits", NamingOptions{
		StarlessSuffix: "_s",
		StarsSuffix:    "_only_stars",
		FITSExt:        ".fits",
	})
	require.NoError(t, err)

	assert.Equal(t, "m31_s.tif", got.StarlessTIFF)
	assert.Equal(t, "m31_s", got.StarlessName)
	assert.Equal(t, "m31_s.fits", got.StarlessFITS)
	assert.Equal(t, "m31_only_stars.fits", got.StarsFITS)
}

// TestDeriveArtifacts_RejectsNonFITS verifies the extension gate, which
// is case-sensitive.
func TestDeriveArtifacts_RejectsNonFITS(t *testing.T) {
	for _, source := range []string{"m42.tif", "m42.FITS", "m42", "m42.fits.gz", "m42.fts"} {
		t.Run(source, func(t *testing.T) {
			_, err := DeriveArtifacts(source, NamingOptions{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotFITS))
		})
	}
}

// TestHasSpace checks the path gate for StarNet++ inputs.
func TestHasSpace(t *testing.T) {
	assert.False(t, HasSpace("/data/m42.tif"))
	assert.True(t, HasSpace("/data/my images/m42.tif"))
	assert.True(t, HasSpace("m42 final.tif"))
}

// TestTIFFMode_AcceptedByStarNet verifies that only grayscale-16 and RGB
// layouts pass the StarNet++ gate.
func TestTIFFMode_AcceptedByStarNet(t *testing.T) {
	tests := []struct {
		mode     TIFFMode
		expected bool
	}{
		{ModeGray16, true},
		{ModeRGB, true},
		{ModeRGB16, true},
		{ModeGray8, false},
		{ModeUnknown, false},
		{TIFFMode(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.mode.AcceptedByStarNet())
		})
	}
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitUnsupportedTIFF, "Not a TIF/16bit file")
		assert.Equal(t, ExitUnsupportedTIFF, err.Code)
		assert.Equal(t, "Not a TIF/16bit file", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("exit status 1")
		err := WrapCLIError(ExitSirilFailed, "siril script failed", inner)
		assert.Equal(t, ExitSirilFailed, err.Code)
		assert.Contains(t, err.Error(), "exit status 1")
		assert.Equal(t, inner, err.Unwrap())
	})

	t.Run("errors.Is chain", func(t *testing.T) {
		err := WrapCLIError(ExitUsage, "invalid source", ErrNotFITS)
		assert.True(t, errors.Is(err, ErrNotFITS))
	})
}

// TestExitCodeOf verifies exit code extraction through wrapping layers.
func TestExitCodeOf(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCodeOf(nil))
	assert.Equal(t, ExitGeneralError, ExitCodeOf(errors.New("boom")))
	assert.Equal(t, ExitNoArgs, ExitCodeOf(NewCLIError(ExitNoArgs, "no args")))

	wrapped := fmt.Errorf("outer: %w", NewCLIError(ExitStarNetFailed, "no output"))
	assert.Equal(t, ExitStarNetFailed, ExitCodeOf(wrapped))
}
