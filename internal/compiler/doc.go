// Package compiler loads dashboard definitions.
//
// A dashboard is read from a directory holding one CUE package, a single
// .cue file, or a JSON or YAML document. All formats decode through the
// same JSON shapes, so a definition can move between them unchanged.
// Validate reports structural problems before anything touches a store.
package compiler
