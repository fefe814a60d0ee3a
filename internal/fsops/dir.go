package fsops

import (
	"os"

	"github.com/petasbytes/go-agent/internal/safety"
)

// Dir resolves the working directory for a spawned process. Empty means the
// read root; anything that is not an existing directory is rejected.
func Dir(relDir string) (string, error) {
	sb, err := sandbox()
	if err != nil {
		return "", err
	}
	abs, err := sb.DirPath(relDir)
	if err != nil {
		return "", err
	}
	if fi, err := os.Stat(abs); err != nil {
		return "", err
	} else if !fi.IsDir() {
		return "", safety.ToolError{Code: "ERR_NOT_A_DIR", Message: "cwd is not a directory"}
	}
	return abs, nil
}
