// Package imaging inspects the image files that pass through the
// star-split workflow. It never writes pixels: conversion and arithmetic
// belong to Siril.
//
// It answers three questions:
//   - which colour mode a TIFF has (the StarNet++ input gate),
//   - what bit depth and geometry a FITS file has,
//   - what the pixel statistics of a FITS output are.
package imaging
