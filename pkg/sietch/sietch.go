// Package sietch holds module-level metadata shared by the CLI and
// build tooling.
package sietch

// Version is the release version of the sietch module.
const Version = "v0.1.0"
