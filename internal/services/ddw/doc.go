// Package ddw mediates access to the DeepDeWedge CLI used to denoise paired
// half tomograms.
//
// The fit-model and refine-tomogram subcommands both consume a YAML config
// document; this package only handles invocation and output streaming, while
// document construction lives with the denoising driver.
package ddw
