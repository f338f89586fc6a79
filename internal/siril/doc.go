// Package siril drives the Siril astronomical image processor through its
// command-line front end (siril-cli).
//
// Siril is used as an opaque black box for every pixel operation the
// star-split workflow needs: loading FITS/TIFF, bit-depth conversion,
// saving, and image arithmetic. This package only knows how to phrase
// those operations as Siril script commands and how to run them.
//
// Design decisions:
//   - Each Exec batch is written to a script file and run by a fresh
//     "siril-cli -s <script>" process. This avoids Siril's named-pipe
//     protocol, which is platform-specific.
//   - Session-level state ("cd" and "setext") is sticky: it is replayed at
//     the top of every later batch, so batches behave as one session.
//   - All failures are wrapped in model.CLIError with ExitSirilFailed.
package siril
