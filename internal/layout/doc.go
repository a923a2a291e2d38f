// Package layout compiles panel layout files.
//
// A layout is a CUE document declaring the panels of a viewer window and the
// guard links between them:
//
//	panels: {
//		plot:     {kind: "spot-plot", scope: "sample/primary"}
//		table:    {kind: "spot-table", scope: "sample/primary"}
//		spectrum: {kind: "spectrum", scope: "sample/primary"}
//		mobility: {kind: "drift-plot", scope: "sample/secondary"}
//	}
//	links: [{hub: "plot", spokes: ["table"]}]
//
// The document is unified with an embedded schema, so type and enum errors
// are reported with CUE positions. Validate then checks the link graph:
// every link is a star around one hub, members share the hub's scope and
// can write, and no panel is reachable from itself.
package layout
