// Package reconstruction launches batch tomogram reconstruction for a
// newly acquired tilt series. It validates the pipeline's positional launch
// parameters, waits for the acquisition's mdoc metadata to land, renders the
// batch reconstructor's master command and directive files, and starts the
// external series watcher as a detached process.
package reconstruction
