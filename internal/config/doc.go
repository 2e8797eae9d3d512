// Package config loads, normalizes, and validates tomopipe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TOMOPIPE_NTFY_TOPIC. The Config type centralizes every knob the pipeline
// commands need, allowing scan/state/log directories, external tool names, and
// the archive destination to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
