// Package mrc reads the fixed 1024-byte main header of MRC2014 volumes.
//
// Only the fields the pipeline consumes are decoded: image dimensions for
// view counts and thickness arithmetic, and the cell and grid sizes the voxel
// size derives from. Volumes are assumed little-endian, which matches
// everything IMOD and SerialEM produce on the acquisition hosts.
package mrc
