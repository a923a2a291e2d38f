// Package tui is the terminal viewer: a spot table, a spot map, a spectrum
// panel and a mobility panel bound to one sample's focus scopes.
//
// Panels render on the workspace's dispatch loop and keep a snapshot that the
// bubbletea model reads when it draws. Key presses become gestures posted to
// the loop. The table and the map are linked through a guard: when the table
// re-renders it moves its cursor to the focused row, which fires its own
// selection signal, and that echo is swallowed.
package tui
