// Package denoise drives the DeepDeWedge trainer over the half tomograms a
// halfsets run produced: it renders the trainer's YAML configuration, fits a
// model on a random sample of pairs, selects the best checkpoint by the
// configured metric, and refines every tomogram with it.
package denoise
