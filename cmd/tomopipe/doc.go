// Package main hosts the tomopipe CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into pipeline
// runs: the reconstruction launcher, the half-tomogram generator, the
// denoising driver, ledger inspection, and configuration scaffolding. It
// centralizes configuration resolution, structured logging setup, and the
// single-instance batch lock so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
