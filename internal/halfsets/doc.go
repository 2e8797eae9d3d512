// Package halfsets generates even and odd half tomograms from completed
// reconstructions so downstream denoising has matched noise-independent
// pairs to train on.
//
// The driver walks every dataset directory under a scan root through four
// stages: classify the alignment metadata, regenerate the aligned stack when
// only the transform survived, reconstruct both halves with tilt, and rotate
// them into the final orientation with trimvol. Each dataset is independent;
// failures and skips are recorded in the ledger and the run moves on.
package halfsets
