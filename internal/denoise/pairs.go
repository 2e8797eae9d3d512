package denoise

import (
	"fmt"
	"io/fs"
	"math/rand"
	"path/filepath"
	"sort"
	"strings"
)

// Pair is one matched set of half tomograms: the evens volume and the odds
// volume reconstructed from the same tilt series.
type Pair struct {
	Name  string
	Evens string
	Odds  string
}

// LocatePairs walks root for half tomograms named *<evensSuffix>.<ext> and
// *<oddsSuffix>.<ext>, skipping unrotated "full" volumes, and zips the two
// lists positionally after sorting. The counts must match exactly; an evens
// volume without its odds counterpart means a reconstruction was interrupted
// and training on the mismatch would pair unrelated tomograms.
func LocatePairs(root, evensSuffix, oddsSuffix, extension string) ([]Pair, error) {
	evens, err := findHalves(root, evensSuffix, extension)
	if err != nil {
		return nil, err
	}
	odds, err := findHalves(root, oddsSuffix, extension)
	if err != nil {
		return nil, err
	}

	if len(evens) == 0 && len(odds) == 0 {
		return nil, fmt.Errorf("no half tomograms (*%s.%s, *%s.%s) under %s", evensSuffix, extension, oddsSuffix, extension, root)
	}
	if len(evens) != len(odds) {
		return nil, fmt.Errorf("unmatched half tomograms under %s: %d evens, %d odds", root, len(evens), len(odds))
	}

	pairs := make([]Pair, len(evens))
	for i := range evens {
		pairs[i] = Pair{
			Name:  pairName(evens[i], evensSuffix, extension),
			Evens: evens[i],
			Odds:  odds[i],
		}
	}
	return pairs, nil
}

func findHalves(root, suffix, extension string) ([]string, error) {
	target := suffix + "." + extension
	var out []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		name := entry.Name()
		if !strings.HasSuffix(name, target) || strings.Contains(name, "full") {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(out)
	return out, nil
}

func pairName(path, suffix, extension string) string {
	name := strings.TrimSuffix(filepath.Base(path), "."+extension)
	name = strings.TrimSuffix(name, suffix)
	return strings.TrimSuffix(name, "_")
}

// SamplePairs picks n pairs uniformly at random for training, preserving
// discovery order. All pairs are returned when n is not positive or not less
// than the total.
func SamplePairs(rng *rand.Rand, pairs []Pair, n int) []Pair {
	if n <= 0 || n >= len(pairs) {
		out := make([]Pair, len(pairs))
		copy(out, pairs)
		return out
	}
	picked := rng.Perm(len(pairs))[:n]
	sort.Ints(picked)
	out := make([]Pair, 0, n)
	for _, i := range picked {
		out = append(out, pairs[i])
	}
	return out
}
