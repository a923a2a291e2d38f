// Package datafile implements the binary result file format and its
// ByteOffsetIndex.
//
// A data file is an append-written blob:
//
//	file   = header record*
//	header = magic:u32 version:u16 kind:u16 count:u32 reserved:u32   (16 bytes)
//	record = id:i32 owner:i32 kind:u8 nfields:u8 narrays:u8 reserved:u8
//	         field:f64{nfields}
//	         (npoints:u32 (x:f64 y:f64){npoints}){narrays}
//
// All integers are little-endian. A record's length follows from its field
// count and the element count prefixed to each array, so the index can be
// built with one sequential pass that never reads past a record's end.
//
// Index offsets are relative to the start of the body (byte 16). The index is
// immutable once built. A data file that changes on disk while an index over
// it is in use is undefined behavior; close and reopen to observe a rerun.
//
// Writers emit a zstd-compressed sidecar (<file>.idx) holding the index so
// that a viewer can skip the scan. The sidecar is only trusted when it
// matches the data file's size and header and describes a contiguous
// partition of the body; otherwise the body is scanned.
//
// Files are locked with advisory flock: shared for viewing, exclusive for
// writing or in-place edits. A conflicting lock fails immediately with a
// FILE_LOCKED error and is never retried.
package datafile
