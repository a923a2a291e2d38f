// Package resultstore provides RecordStore: random access to the records of
// one data file by record ID.
//
// A Store owns exactly one open, locked file handle and the immutable
// ByteOffsetIndex built over it. Fetch reads with ReadAt, so concurrent
// fetches never share a seek position. Close releases the handle and is
// idempotent; every call after Close fails with STORE_CLOSED.
//
// DriftStore layers the secondary (ion mobility) dimension on top of a Store
// keyed by master ID. ResultSet groups the stores that make up one analysed
// sample or one alignment result so they are opened, and released, together.
package resultstore
