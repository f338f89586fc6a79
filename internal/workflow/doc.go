// Package workflow implements the star-split procedure: export a 16-bit
// TIFF from a 32-bit FITS, remove stars with StarNet++, bring the result
// back to FITS, and subtract it from the original to isolate the stars.
//
// The procedure is strictly linear. Every detected problem is fatal and
// is returned as a model.CLIError whose code identifies the exit point.
// Nothing already written is rolled back. The Siril session is always
// closed once opened, and a failing Close is logged, never returned.
package workflow
