package main

import (
	"os"
	"path/filepath"
	"testing"
)

const reconstructTestMdoc = `PixelSpacing = 2.702

[ZValue = 0]
TiltAngle = -0.004
Defocus = -3.95

[ZValue = 1]
TiltAngle = 3.005
Defocus = -4.05
`

// All 33 launch parameters in shell order, with an explicit pixel size so the
// run does not depend on the metadata-derived value.
func cliReconstructArgs() []string {
	return []string{
		"16", "1", "TS_01", "1", "1", "4", "0", "10", "6", "0", "1",
		"0.27", "85.3", "1", "300", "2.7", "1", "EMPTY", "2048", "1",
		"25", "1.5", "680", "680", "20", "10", "1", "-1.0", "-8.0",
		"512", "256", "1", "10",
	}
}

func TestReconstructRejectsWrongArgCount(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"reconstruct", "16", "1"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for wrong argument count")
	}
	requireContains(t, err.Error(), "33")
}

func TestReconstructRendersAndLaunchesWatcher(t *testing.T) {
	env := setupCLITestEnv(t)

	work := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(work); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldWD); err != nil {
			t.Errorf("restore working directory: %v", err)
		}
	})

	outDir := filepath.Join(work, "TS_01")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatalf("mkdir out dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "TS_01.mrc.mdoc"), []byte(reconstructTestMdoc), 0o644); err != nil {
		t.Fatalf("write mdoc: %v", err)
	}

	out, _, err := runCLI(t, append([]string{"reconstruct"}, cliReconstructArgs()...), env.configPath)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	requireContains(t, out, "Series watcher launched for TS_01")

	for _, name := range []string{"BRT_MASTER.com", "BRT_MASTER.adoc"} {
		if _, err := os.Stat(filepath.Join(work, "coms", name)); err != nil {
			t.Fatalf("expected rendered %s: %v", name, err)
		}
	}
}
