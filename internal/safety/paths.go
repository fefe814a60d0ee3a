// Package safety confines tool file access to a read root and a write root.
// Violations are reported as ToolError values the model can act on.
package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ToolError is a machine-readable policy error. Error renders it as one
// line of JSON so it can be returned to the model verbatim.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

var errOutside = ToolError{Code: "ERR_PATH_OUTSIDE_SANDBOX", Message: "requested path resolves outside the sandbox root"}

// Sandbox holds absolute, symlink-resolved roots.
type Sandbox struct {
	ReadRoot  string
	WriteRoot string
}

// NewSandbox resolves the roots. An empty read root means the working
// directory; an empty write root means the read root.
func NewSandbox(readRoot, writeRoot string) (Sandbox, error) {
	if readRoot == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return Sandbox{}, fmt.Errorf("getwd: %w", err)
		}
		readRoot = cwd
	}
	if writeRoot == "" {
		writeRoot = readRoot
	}
	r, err := absRoot(readRoot)
	if err != nil {
		return Sandbox{}, err
	}
	w, err := absRoot(writeRoot)
	if err != nil {
		return Sandbox{}, err
	}
	return Sandbox{ReadRoot: r, WriteRoot: w}, nil
}

// absRoot makes p absolute and resolves symlinks when p exists.
func absRoot(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", p, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}

func (s Sandbox) ReadPath(rel string) (string, error)  { return ValidateRelPath(s.ReadRoot, rel) }
func (s Sandbox) WritePath(rel string) (string, error) { return ValidateWritePath(s.WriteRoot, rel) }
func (s Sandbox) DirPath(rel string) (string, error)   { return ValidateDir(s.ReadRoot, rel) }

// resolveInRoot joins relPath onto absRoot, resolves symlinks on the deepest
// existing ancestor, and checks the result is still under absRoot. It returns
// the absolute candidate and its slash-separated path relative to the root.
func resolveInRoot(absRoot, relPath string) (string, string, error) {
	if filepath.IsAbs(relPath) {
		return "", "", ToolError{Code: errOutside.Code, Message: "absolute paths are not allowed"}
	}
	candidate := resolveExisting(filepath.Join(absRoot, filepath.Clean(relPath)))

	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", errOutside
	}
	return candidate, filepath.ToSlash(rel), nil
}

// resolveExisting evaluates symlinks on the longest existing prefix of p and
// re-appends the missing tail, so a symlinked ancestor of a file that does
// not exist yet still counts.
func resolveExisting(p string) string {
	var tail []string
	for cur := p; ; {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		tail = append(tail, filepath.Base(cur))
		cur = parent
	}
}
