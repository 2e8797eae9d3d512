// Package imod mediates access to the IMOD command-line tools that build and
// rotate half tomograms.
//
// It normalizes command invocation, scopes every call to the dataset
// directory, and classifies job transcripts by their terminal markers so
// stages share one notion of success. Prefer this package over ad-hoc
// exec.Command usage when submitting command files so timeout handling and
// outcome classification remain consistent.
package imod
