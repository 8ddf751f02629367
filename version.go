// Package procrun runs external programs and captures their output.
// The library lives in the runner package; this package only carries
// build metadata.
package procrun

// Version is the procrun release.
const Version = "v0.1.0"
