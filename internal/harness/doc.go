// Package harness runs selection-sync scenarios against the real viewer
// core.
//
// A scenario builds a synthetic result, binds panels to it through a
// workspace, plays a sequence of panel gestures and checks the outcome:
//
//	name: linked_table_plot
//	description: "Plot and table share a guard"
//	fixture:
//	  kind: sample
//	  spots: 6
//	panels:
//	  - {name: plot, kind: spot-plot, scope: sample/primary}
//	  - {name: table, kind: spot-table, scope: sample/primary}
//	links:
//	  - {hub: plot, spokes: [table]}
//	steps:
//	  - {gesture: plot, id: 3, expect: written}
//	assertions:
//	  - {type: focus, scope: sample/primary, id: 3}
//	  - {type: sets, scope: sample/primary, count: 1}
//	  - {type: echoes, panel: table, count: 1}
//
// Panels may instead come from a CUE layout file (layout: "file.cue",
// resolved against the scenario's directory).
//
// # Assertion Types
//
//   - focus: the focused record of a scope
//   - sets: number of focus mutations of a scope
//   - renders: number of renders of a panel
//   - rendered: the focused IDs a panel rendered, in order
//   - echoes: gestures a panel's binding dropped as echoes
//   - writes: gestures a panel's binding passed to the focus
//
// # Deterministic Testing
//
// Every run uses a fresh project database, freshly written data files,
// sequential gesture IDs and a step counter, so the trace of a scenario is
// byte-identical across runs and can be compared with a golden file.
//
// Interactive panels echo every render back as a gesture, the way a table
// re-selects its cursor row. The trace shows those echo gestures and their
// outcome.
package harness
