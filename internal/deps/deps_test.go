package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestCheckBinariesUnconfigured(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Blank", Command: "   "}})
	if results[0].Available {
		t.Fatal("expected unconfigured command to be unavailable")
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %s", results[0].Detail)
	}
}

func TestResolveIMODToolPrefersPath(t *testing.T) {
	binDir := t.TempDir()
	tool := filepath.Join(binDir, "subm")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir)
	t.Setenv("IMOD_DIR", t.TempDir())

	if got := ResolveIMODTool("subm"); got != "subm" {
		t.Fatalf("expected bare name when tool is on PATH, got %q", got)
	}
}

func TestResolveIMODToolFallsBackToInstallDir(t *testing.T) {
	imodDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(imodDir, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	tool := filepath.Join(imodDir, "bin", "trimvol")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", t.TempDir())
	t.Setenv("IMOD_DIR", imodDir)

	if got := ResolveIMODTool("trimvol"); got != tool {
		t.Fatalf("expected install-dir fallback %q, got %q", tool, got)
	}
}

func TestResolveIMODToolKeepsExplicitPath(t *testing.T) {
	t.Setenv("IMOD_DIR", t.TempDir())
	if got := ResolveIMODTool("/usr/local/IMOD/bin/subm"); got != "/usr/local/IMOD/bin/subm" {
		t.Fatalf("explicit paths should pass through, got %q", got)
	}
}

func TestResolveIMODToolUnresolved(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	t.Setenv("IMOD_DIR", "")
	if got := ResolveIMODTool("nosuchtool"); got != "nosuchtool" {
		t.Fatalf("unresolved tools should keep their name, got %q", got)
	}
}
