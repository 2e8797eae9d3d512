package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveIMODTool returns the command to use for an IMOD program.
//
// IMOD installs place their binaries under $IMOD_DIR/bin and rely on the
// login environment to extend PATH. Cron jobs and systemd units often miss
// that step, so when a bare tool name is not on PATH this helper falls back
// to $IMOD_DIR/bin/<name> before giving up.
func ResolveIMODTool(command string) string {
	name := strings.TrimSpace(command)
	if name == "" || strings.ContainsRune(name, os.PathSeparator) {
		return name
	}
	if _, err := exec.LookPath(name); err == nil {
		return name
	}

	imodDir := strings.TrimSpace(os.Getenv("IMOD_DIR"))
	if imodDir == "" {
		return name
	}
	candidate := filepath.Join(imodDir, "bin", name)
	if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
		return candidate
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
