// Package testutil holds deterministic builders shared by package tests and
// the scenario harness: step sequences, gesture IDs, synthetic records and
// data files, and panels that record what they render.
package testutil
