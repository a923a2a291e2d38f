// Package record defines the records held in spotview result files.
//
// A record is one self-contained payload addressed by an integer ID: the
// deconvoluted spectrum of a spot, the aggregated chromatogram of an alignment
// spot, a drift (ion mobility) sub-record, or the per-sample intensities
// behind a bar chart. Records are produced by external algorithms; this
// package never assigns or renumbers IDs.
//
// The package also provides the canonical JSON form used for hashing records
// and for deterministic trace output:
//   - Object keys sorted by UTF-16 code units
//   - No HTML escaping
//   - Strings are NFC normalized
//   - Floats in shortest round-trip form; NaN and Inf are rejected
//
// record imports nothing internal. Every other internal package may import it.
package record
