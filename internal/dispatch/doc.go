// Package dispatch provides the single dispatch goroutine every focus
// mutation, latch and store hand-over runs on.
//
// Loop executes posted tasks one at a time in FIFO order. Work that would
// block the loop (large index builds, fetches from slow disks) runs in
// Background on its own goroutine and posts its result back; the result is
// applied only if the generation token it was started with is still current.
// Switching a scope advances its generation, so work for the previous sample
// or alignment is discarded when it finishes instead of being applied to the
// new one.
package dispatch
