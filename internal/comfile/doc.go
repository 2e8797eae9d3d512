// Package comfile renders the IMOD command files that drive half tomogram
// generation.
//
// newst.com regenerates an aligned stack through newstack; tilt_evens.com and
// tilt_odds.com reconstruct one tomogram per tilt parity. When a dataset
// carries an operator-tuned tilt.com the per-half files derive from it,
// replacing only the keyed parameter lines; otherwise a complete file is
// synthesized. Output is byte-exact by design since etomo and subm consume
// these files directly.
package comfile
