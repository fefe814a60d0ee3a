package safety

import (
	"path"
	"strings"
)

var (
	readDenyDirs       = []string{".git", ".agent"}
	writeDenyDirs      = []string{".git", ".agent"}
	writeDenyBasenames = map[string]struct{}{"go.mod": {}, "go.sum": {}}
)

// ValidateRelPath resolves relPath for reading under absRoot. Absolute
// inputs, traversal, symlink escapes and the .git/ and .agent/ subtrees are
// rejected.
func ValidateRelPath(absRoot, relPath string) (string, error) {
	candidate, rel, err := resolveInRoot(absRoot, relPath)
	if err != nil {
		return "", err
	}
	if underAny(rel, readDenyDirs) {
		return "", ToolError{Code: "ERR_DENIED_READ", Message: "reads under .git/ or .agent/ are not allowed"}
	}
	return candidate, nil
}

// ValidateWritePath resolves relPath for writing under absRoot. On top of the
// read boundary it denies the root itself, the .git/ and .agent/ subtrees,
// and go.mod/go.sum at any depth.
func ValidateWritePath(absRoot, relPath string) (string, error) {
	candidate, rel, err := resolveInRoot(absRoot, relPath)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", ToolError{Code: "ERR_NOT_A_FILE", Message: "write target is the sandbox root"}
	}
	if underAny(rel, writeDenyDirs) {
		return "", ToolError{Code: "ERR_DENIED_WRITE", Message: "writes under .git/ or .agent/ are not allowed"}
	}
	if _, denied := writeDenyBasenames[path.Base(rel)]; denied {
		return "", ToolError{Code: "ERR_DENIED_WRITE", Message: "writes to " + path.Base(rel) + " are not allowed"}
	}
	return candidate, nil
}

// ValidateDir resolves a working directory for subprocess tools. Empty means
// the root itself.
func ValidateDir(absRoot, relDir string) (string, error) {
	if relDir == "" {
		relDir = "."
	}
	return ValidateRelPath(absRoot, relDir)
}

func underAny(rel string, dirs []string) bool {
	for _, d := range dirs {
		if rel == d || strings.HasPrefix(rel, d+"/") {
			return true
		}
	}
	return false
}
