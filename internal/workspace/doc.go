// Package workspace is the viewer's application context.
//
// A Workspace ties one project database to the live viewer state: the focus
// registry, the result stores of the current sample and the current
// alignment, the panel bindings and guards built from a layout, and the
// dispatch loop with its generation tracker. It replaces a process-wide main
// window object; everything a panel or command needs is reached through it.
//
// Thread-safety model:
//   - OpenSampleAsync, OpenAlignmentAsync, Do, Run, Stop: safe from any
//     goroutine
//   - every other method: call from the dispatch loop, or from a single
//     goroutine when no loop runs
package workspace
