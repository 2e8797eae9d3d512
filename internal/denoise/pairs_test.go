package denoise_test

import (
	"math/rand"
	"path/filepath"
	"testing"

	"tomopipe/internal/denoise"
	"tomopipe/internal/testsupport"
)

func writeHalves(t *testing.T, root, name string) (string, string) {
	t.Helper()
	dir := filepath.Join(root, name, "halfsets")
	evens := filepath.Join(dir, name+"_rec_evens.mrc")
	odds := filepath.Join(dir, name+"_rec_odds.mrc")
	testsupport.WriteFile(t, evens, 32)
	testsupport.WriteFile(t, odds, 32)
	return evens, odds
}

func TestLocatePairsSortsAndNames(t *testing.T) {
	root := t.TempDir()
	// Created out of order to prove sorting drives the pairing.
	writeHalves(t, root, "TS_02")
	writeHalves(t, root, "TS_01")
	// Unrotated intermediates never become pairs.
	testsupport.WriteFile(t, filepath.Join(root, "TS_01", "TS_01_full_rec_evens.mrc"), 32)
	testsupport.WriteFile(t, filepath.Join(root, "TS_01", "TS_01_full_rec_odds.mrc"), 32)

	pairs, err := denoise.LocatePairs(root, "evens", "odds", "mrc")
	if err != nil {
		t.Fatalf("LocatePairs: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(pairs))
	}
	if pairs[0].Name != "TS_01_rec" || pairs[1].Name != "TS_02_rec" {
		t.Fatalf("pair names = %q, %q", pairs[0].Name, pairs[1].Name)
	}
	for _, pair := range pairs {
		if filepath.Base(filepath.Dir(pair.Evens)) != "halfsets" {
			t.Errorf("unexpected evens path %s", pair.Evens)
		}
		if filepath.Dir(pair.Evens) != filepath.Dir(pair.Odds) {
			t.Errorf("pair spans directories: %s vs %s", pair.Evens, pair.Odds)
		}
	}
}

func TestLocatePairsCountMismatch(t *testing.T) {
	root := t.TempDir()
	writeHalves(t, root, "TS_01")
	testsupport.WriteFile(t, filepath.Join(root, "TS_02", "halfsets", "TS_02_rec_evens.mrc"), 32)

	_, err := denoise.LocatePairs(root, "evens", "odds", "mrc")
	if err == nil {
		t.Fatal("expected error for unmatched halves")
	}
}

func TestLocatePairsNoneFound(t *testing.T) {
	if _, err := denoise.LocatePairs(t.TempDir(), "evens", "odds", "mrc"); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestSamplePairs(t *testing.T) {
	pairs := []denoise.Pair{
		{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}, {Name: "e"},
	}
	rng := rand.New(rand.NewSource(1))

	sample := denoise.SamplePairs(rng, pairs, 3)
	if len(sample) != 3 {
		t.Fatalf("sample size = %d, want 3", len(sample))
	}
	seen := map[string]bool{}
	for _, pair := range sample {
		if seen[pair.Name] {
			t.Fatalf("pair %s sampled twice", pair.Name)
		}
		seen[pair.Name] = true
	}

	// Requesting at least as many as exist returns everything.
	all := denoise.SamplePairs(rng, pairs, len(pairs))
	if len(all) != len(pairs) {
		t.Fatalf("full sample size = %d, want %d", len(all), len(pairs))
	}
	all = denoise.SamplePairs(rng, pairs, 0)
	if len(all) != len(pairs) {
		t.Fatalf("unbounded sample size = %d, want %d", len(all), len(pairs))
	}
}
