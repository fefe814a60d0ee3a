package safety_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/go-agent/internal/safety"
)

func TestNewSandbox(t *testing.T) {
	t.Run("defaults to cwd", func(t *testing.T) {
		dir := evalRoot(t)
		t.Chdir(dir)
		sb, err := safety.NewSandbox("", "")
		require.NoError(t, err)
		assert.Equal(t, safety.Sandbox{ReadRoot: dir, WriteRoot: dir}, sb)
	})

	t.Run("separate write root", func(t *testing.T) {
		read, write := evalRoot(t), evalRoot(t)
		sb, err := safety.NewSandbox(read, write)
		require.NoError(t, err)
		assert.Equal(t, read, sb.ReadRoot)
		assert.Equal(t, write, sb.WriteRoot)
	})

	t.Run("symlinked root is resolved", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("symlinks need privileges on Windows")
		}
		target := evalRoot(t)
		link := filepath.Join(evalRoot(t), "ws")
		if err := os.Symlink(target, link); err != nil {
			t.Skipf("symlink not allowed: %v", err)
		}
		sb, err := safety.NewSandbox(link, "")
		require.NoError(t, err)
		assert.Equal(t, target, sb.ReadRoot)
		assert.Equal(t, target, sb.WriteRoot)
	})
}

func TestValidateRelPath(t *testing.T) {
	root := evalRoot(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))

	cases := []struct {
		rel  string
		code string
	}{
		{"src/main.go", ""},
		{"src/../README.md", ""},
		{".", ""},
		{".github/workflows/ci.yml", ""},
		{".git/HEAD", "ERR_DENIED_READ"},
		{".agent/sessions/x.json", "ERR_DENIED_READ"},
		{"../../x", "ERR_PATH_OUTSIDE_SANDBOX"},
		{"src/../../x", "ERR_PATH_OUTSIDE_SANDBOX"},
		{filepath.Join(root, "src"), "ERR_PATH_OUTSIDE_SANDBOX"},
	}
	for _, tc := range cases {
		t.Run(tc.rel, func(t *testing.T) {
			p, err := safety.ValidateRelPath(root, tc.rel)
			if tc.code == "" {
				require.NoError(t, err)
				assert.Equal(t, filepath.Join(root, filepath.FromSlash(tc.rel)), p)
				return
			}
			assert.Equal(t, tc.code, codeOf(err), "err=%v", err)
		})
	}
}

func TestSymlinkEscapes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on Windows")
	}
	root := evalRoot(t)
	if err := os.Symlink(t.TempDir(), filepath.Join(root, "out")); err != nil {
		t.Skipf("symlink not allowed: %v", err)
	}
	sb := safety.Sandbox{ReadRoot: root, WriteRoot: root}

	_, err := sb.ReadPath("out/escape.txt")
	assert.Equal(t, "ERR_PATH_OUTSIDE_SANDBOX", codeOf(err))

	// only the distant ancestor exists
	_, err = sb.WritePath("out/a/b/new.txt")
	assert.Equal(t, "ERR_PATH_OUTSIDE_SANDBOX", codeOf(err))

	_, err = sb.DirPath("out")
	assert.Equal(t, "ERR_PATH_OUTSIDE_SANDBOX", codeOf(err))
}

func TestValidateDir(t *testing.T) {
	root := evalRoot(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0o755))

	got, err := safety.ValidateDir(root, "")
	require.NoError(t, err)
	assert.Equal(t, root, got)

	got, err = safety.ValidateDir(root, "pkg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "pkg"), got)

	_, err = safety.ValidateDir(root, "..")
	assert.Equal(t, "ERR_PATH_OUTSIDE_SANDBOX", codeOf(err))
}

func TestToolError_IsCompactJSON(t *testing.T) {
	err := safety.ToolError{Code: "ERR_DENIED_READ", Message: "no"}
	assert.Equal(t, `{"code":"ERR_DENIED_READ","message":"no"}`, err.Error())
}
