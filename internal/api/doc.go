// Package api serves a read-only HTTP view of a workspace.
//
// Routes:
//
//	GET /scopes                                           open focus scopes
//	GET /scopes/{family}/{owner}/{dimension}/focus        focused record of one scope
//	GET /stores/{family}/{owner}/{dimension}/records/{id} one record of a scope's store
//	GET /stores/{family}/{owner}/{dimension}/index        the store's offset index
//
// A scope is addressed by its three parts, e.g. /scopes/sample/3/primary.
// Every handler reads the workspace on its dispatch loop, so responses never
// observe a half-applied focus change or result switch.
package api
