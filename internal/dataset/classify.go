package dataset

import "os"

// MetadataState describes which alignment products a dataset carries and
// therefore how its half tomograms can be generated.
type MetadataState string

const (
	// StateAbsent means alignment metadata is incomplete; half tomograms
	// cannot be generated until the files are transferred in.
	StateAbsent MetadataState = "absent"
	// StateDirect means the aligned stack already exists and reconstruction
	// can start at the tilt step.
	StateDirect MetadataState = "direct"
	// StateRealign means the transform exists but the aligned stack does
	// not, so newstack must regenerate it first.
	StateRealign MetadataState = "needs-realignment"
)

// Classify inspects a dataset's alignment products. Missing tilt-angle or
// x-tilt files make the dataset absent regardless of the other files.
func Classify(d Dataset) MetadataState {
	xf := exists(d.Transform())
	ali := exists(d.Aligned())
	tlt := exists(d.TiltAngles())
	xtilt := exists(d.XTilt())

	switch {
	case (!xf && !ali) || !tlt || !xtilt:
		return StateAbsent
	case ali && tlt && xtilt:
		return StateDirect
	case xf && tlt && xtilt && !ali:
		return StateRealign
	default:
		return StateAbsent
	}
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
