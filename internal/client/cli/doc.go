// Package cli implements the interactive cvkit shell: a small REPL over the
// session controller and the resume service. Command handlers print their
// own errors; the loop itself only dispatches.
package cli
