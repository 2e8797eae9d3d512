package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// reconstructionSuffix marks a completed tomogram and anchors dataset naming.
// Files whose name also contains "full" are unrotated intermediates and never
// name a dataset.
const reconstructionSuffix = "_rec.mrc"

// Dataset is one tilt series directory holding a completed reconstruction.
type Dataset struct {
	Name string
	Dir  string
}

// Discover lists the immediate subdirectories of root that contain a
// completed reconstruction. The dataset name derives from the first such
// volume in lexical order, truncated at the reconstruction suffix.
func Discover(root string) ([]Dataset, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read scan root: %w", err)
	}

	var datasets []Dataset
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		name, ok, err := deriveName(dir)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		datasets = append(datasets, Dataset{Name: name, Dir: dir})
	}
	sort.Slice(datasets, func(i, j int) bool { return datasets[i].Dir < datasets[j].Dir })
	return datasets, nil
}

func deriveName(dir string) (string, bool, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+reconstructionSuffix))
	if err != nil {
		return "", false, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(matches)
	for _, match := range matches {
		base := filepath.Base(match)
		if strings.Contains(base, "full") {
			continue
		}
		if idx := strings.Index(base, "_rec"); idx > 0 {
			return base[:idx], true, nil
		}
	}
	return "", false, nil
}

// Stack returns the path of the raw tilt series stack.
func (d Dataset) Stack() string {
	return filepath.Join(d.Dir, d.Name+".mrc")
}

// Aligned returns the path of the aligned stack.
func (d Dataset) Aligned() string {
	return filepath.Join(d.Dir, d.Name+"_ali.mrc")
}

// Transform returns the path of the alignment transform file.
func (d Dataset) Transform() string {
	return filepath.Join(d.Dir, d.Name+".xf")
}

// TiltAngles returns the path of the tilt angle file.
func (d Dataset) TiltAngles() string {
	return filepath.Join(d.Dir, d.Name+".tlt")
}

// XTilt returns the path of the x-axis tilt file.
func (d Dataset) XTilt() string {
	return filepath.Join(d.Dir, d.Name+".xtilt")
}

// Reconstruction returns the path of the completed full tomogram.
func (d Dataset) Reconstruction() string {
	return filepath.Join(d.Dir, d.Name+reconstructionSuffix)
}

// HalfOutput returns the unrotated half reconstruction path for a parity.
func (d Dataset) HalfOutput(half string) string {
	return filepath.Join(d.Dir, d.Name+"_full_rec_"+half+".mrc")
}

// RotatedHalf returns the final rotated half tomogram path for a parity.
func (d Dataset) RotatedHalf(half string) string {
	return filepath.Join(d.Dir, d.Name+"_rec_"+half+".mrc")
}
