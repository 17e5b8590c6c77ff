// Package trace provides the indentation-aware trace channel shared by the
// Press engine and its collaborators.
//
// # Overview
//
// A Trace is a thin layer over zerolog that adds two things: a fixed set of
// routing levels (critical, error, warning, information, verbose) and a
// nesting depth. Every event is prefixed with spaces proportional to the
// current indent level and carries the level as an "indent" field, so both
// console and JSON output show which pipeline or module produced it.
//
// # Indentation
//
// Callers that run nested work save the indent level, indent, and restore:
//
//	saved := t.Indent()
//	defer t.SetIndentLevel(saved)
//
// Nest wraps the same discipline in a single call:
//
//	defer t.Nest()()
//
// # Thread Safety
//
// Indentation is not synchronized. A trace belongs to one engine, and an
// engine is driven by a single caller.
package trace
