package fsops

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/petasbytes/go-agent/internal/safety"
)

const (
	// MaxReadBytes caps files handed to the model in one read.
	MaxReadBytes = 4 << 20
	// binarySniffLen bytes are checked for NUL to detect binary files.
	binarySniffLen = 8000
)

// ReadFile returns the text of relPath under the read root. Directories,
// oversized files and binary files are rejected with a ToolError.
func ReadFile(relPath string) (string, error) {
	sb, err := sandbox()
	if err != nil {
		return "", err
	}
	absPath, err := sb.ReadPath(relPath)
	if err != nil {
		return "", err
	}

	fi, err := os.Stat(absPath)
	if err != nil {
		return "", err
	}
	switch {
	case fi.IsDir():
		return "", safety.ToolError{Code: "ERR_NOT_A_FILE", Message: "path is a directory"}
	case fi.Size() > MaxReadBytes:
		return "", safety.ToolError{Code: "ERR_TOO_LARGE", Message: "file exceeds read limit"}
	}

	b, err := os.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	if bytes.IndexByte(b[:min(len(b), binarySniffLen)], 0) >= 0 {
		return "", safety.ToolError{Code: "ERR_BINARY_FILE", Message: "file is not text"}
	}
	return string(b), nil
}

// ListDir returns the sorted entry names of relDir under the read root.
// Directory names end in "/". Empty means the root.
func ListDir(relDir string) ([]string, error) {
	sb, err := sandbox()
	if err != nil {
		return nil, err
	}
	absDir, err := sb.DirPath(relDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// WriteFile replaces relPath under the write root with content, creating
// parent directories. The file is swapped in by rename, so readers never see
// a partial write. An existing file keeps its permissions.
func WriteFile(relPath, content string) (int, error) {
	sb, err := sandbox()
	if err != nil {
		return 0, err
	}
	absPath, err := sb.WritePath(relPath)
	if err != nil {
		return 0, err
	}

	mode := fs.FileMode(0o644)
	if fi, err := os.Stat(absPath); err == nil {
		if fi.IsDir() {
			return 0, safety.ToolError{Code: "ERR_NOT_A_FILE", Message: "path is a directory"}
		}
		mode = fi.Mode().Perm()
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(absPath)+".*.tmp")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := tmp.WriteString(content)
	if err == nil {
		err = tmp.Chmod(mode)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), absPath); err != nil {
		return 0, err
	}
	return n, nil
}
