package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Default naming conventions for derived artifacts. These match the
// file names produced by the classic Siril + StarNet++ workflow, so
// existing processing habits (e.g., Photoshop actions keyed on
// "_starless.tif") keep working.
const (
	// DefaultStarlessSuffix is appended to the source basename for the
	// starless TIFF written by StarNet++ and the starless FITS saved by Siril.
	DefaultStarlessSuffix = "_starless"

	// DefaultStarsSuffix is appended to the source basename for the
	// stars-only FITS produced by subtracting the starless image.
	DefaultStarsSuffix = "_stars"

	// DefaultFITSExt is the extension Siril appends when saving FITS files
	// (configured with the "setext" command). No leading dot.
	DefaultFITSExt = "fit"

	// TIFFExt is the extension of every TIFF artifact. Siril's savetif
	// always writes ".tif" and StarNet++ is told to do the same.
	TIFFExt = ".tif"
)

// ErrNotFITS is returned by DeriveArtifacts when the source path does not
// end in ".fits" or ".fit".
var ErrNotFITS = errors.New("source file is not a FIT/FITS file")

// sourceExts lists the accepted source extensions. The comparison is
// case-sensitive: Siril's "load" resolves the file by appending the
// session extension, so "IMG.FITS" would not be found anyway.
var sourceExts = []string{".fits", ".fit"}

// NamingOptions controls how artifact names are derived from the source.
// Zero values fall back to the Default* constants.
type NamingOptions struct {
	// StarlessSuffix overrides DefaultStarlessSuffix.
	StarlessSuffix string

	// StarsSuffix overrides DefaultStarsSuffix.
	StarsSuffix string

	// FITSExt overrides DefaultFITSExt (without leading dot).
	FITSExt string
}

func (o NamingOptions) withDefaults() NamingOptions {
	if o.StarlessSuffix == "" {
		o.StarlessSuffix = DefaultStarlessSuffix
	}
	if o.StarsSuffix == "" {
		o.StarsSuffix = DefaultStarsSuffix
	}
	if o.FITSExt == "" {
		o.FITSExt = DefaultFITSExt
	}
	o.FITSExt = strings.TrimPrefix(o.FITSExt, ".")
	return o
}

// Artifacts holds every filesystem path involved in a single star-split run.
// All names share the source's basename with fixed suffixes; there is no
// collision handling and no uniqueness enforcement.
//
// Names ending in "Name" are extension-less, because Siril's load/save
// commands append the session extension themselves.
type Artifacts struct {
	// Source is the input 32-bit FITS path exactly as given by the user.
	Source string `json:"source"`

	// Base is Source without its extension.
	Base string `json:"base"`

	// TIFF is the 16-bit intermediate fed to StarNet++ (Base + ".tif").
	TIFF string `json:"tiff"`

	// StarlessTIFF is the output StarNet++ is asked to write.
	StarlessTIFF string `json:"starlessTiff"`

	// StarlessName is the Siril name of the starless FITS (no extension).
	StarlessName string `json:"starlessName"`

	// StarlessFITS is StarlessName with the FITS extension applied.
	StarlessFITS string `json:"starlessFits"`

	// StarsName is the Siril name of the stars-only FITS (no extension).
	StarsName string `json:"starsName"`

	// StarsFITS is StarsName with the FITS extension applied.
	StarsFITS string `json:"starsFits"`

	// StarsTIFF is the optional 16-bit TIFF export of the stars image.
	StarsTIFF string `json:"starsTiff"`
}

// DeriveArtifacts computes all artifact paths from the source path.
// It returns ErrNotFITS if the source extension is not ".fits" or ".fit".
func DeriveArtifacts(source string, opts NamingOptions) (Artifacts, error) {
	opts = opts.withDefaults()

	ext := filepath.Ext(source)
	if !isSourceExt(ext) {
		return Artifacts{}, fmt.Errorf("%w: %q", ErrNotFITS, source)
	}

	base := strings.TrimSuffix(source, ext)
	fitsExt := "." + opts.FITSExt

	return Artifacts{
		Source:       source,
		Base:         base,
		TIFF:         base + TIFFExt,
		StarlessTIFF: base + opts.StarlessSuffix + TIFFExt,
		StarlessName: base + opts.StarlessSuffix,
		StarlessFITS: base + opts.StarlessSuffix + fitsExt,
		StarsName:    base + opts.StarsSuffix,
		StarsFITS:    base + opts.StarsSuffix + fitsExt,
		StarsTIFF:    base + opts.StarsSuffix + TIFFExt,
	}, nil
}

func isSourceExt(ext string) bool {
	for _, e := range sourceExts {
		if ext == e {
			return true
		}
	}
	return false
}

// HasSpace reports whether a path contains a space character.
// StarNet++ splits its command line naively, so such paths are rejected.
func HasSpace(path string) bool {
	return strings.Contains(path, " ")
}

// TIFFMode classifies the pixel layout of a TIFF file. The names follow
// the mode strings Pillow reports, which is how StarNet++ documents the
// inputs it accepts.
type TIFFMode string

const (
	// ModeGray16 is 16-bit single-channel grayscale (Pillow "I;16").
	ModeGray16 TIFFMode = "gray16"

	// ModeGray8 is 8-bit single-channel grayscale (Pillow "L").
	ModeGray8 TIFFMode = "gray8"

	// ModeRGB is 8-bit-per-channel RGB (Pillow "RGB").
	ModeRGB TIFFMode = "rgb"

	// ModeRGB16 is 16-bit-per-channel RGB, which Pillow also reports as "RGB".
	ModeRGB16 TIFFMode = "rgb16"

	// ModeUnknown covers every other layout (float, paletted, CMYK, ...).
	ModeUnknown TIFFMode = "unknown"
)

// String returns the string representation of TIFFMode.
func (m TIFFMode) String() string {
	return string(m)
}

// AcceptedByStarNet reports whether StarNet++ can process a TIFF in this
// mode. Only grayscale-16 and RGB inputs are accepted.
func (m TIFFMode) AcceptedByStarNet() bool {
	switch m {
	case ModeGray16, ModeRGB, ModeRGB16:
		return true
	default:
		return false
	}
}

// ExitCode defines the CLI exit codes. The low values (2, 3, 10) keep the
// codes users' shell scripts already test for; the rest distinguish which
// external tool failed.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred
	// (configuration problems, unexpected I/O failures).
	ExitGeneralError ExitCode = 1

	// ExitUsage indicates bad arguments, an unsupported source extension,
	// a missing source file, or that help was requested.
	ExitUsage ExitCode = 2

	// ExitNoArgs indicates the command was invoked without any options.
	ExitNoArgs ExitCode = 3

	// ExitSirilFailed indicates the Siril session could not be opened,
	// a Siril script failed, or an expected Siril output is missing.
	ExitSirilFailed ExitCode = 4

	// ExitStarNetFailed indicates the star-removal runner could not be
	// started or produced no output TIFF.
	ExitStarNetFailed ExitCode = 5

	// ExitUnsupportedTIFF indicates the intermediate TIFF cannot be fed to
	// StarNet++: its path contains a space or its mode is not accepted.
	ExitUnsupportedTIFF ExitCode = 10
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// ExitCodeOf extracts the exit code carried by err. Errors that are not
// (and do not wrap) a CLIError map to ExitGeneralError; nil maps to
// ExitSuccess.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return ExitGeneralError
}
