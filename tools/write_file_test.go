package tools_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petasbytes/go-agent/tools"
)

func TestWriteFile_CreatesNested(t *testing.T) {
	in := tools.WriteFileInput{Path: rel(t, "a", "b.txt"), Content: "hello"}
	b, _ := json.Marshal(in)
	out, err := tools.WriteFileDefinition.Function(context.Background(), b)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.HasPrefix(out, "wrote 5 bytes") {
		t.Fatalf("unexpected result: %q", out)
	}
	data, err := os.ReadFile(filepath.Join(sharedDir, rel(t, "a", "b.txt")))
	if err != nil || string(data) != "hello" {
		t.Fatalf("unexpected file content: %q, %v", string(data), err)
	}
}

func TestWriteFile_Overwrites(t *testing.T) {
	dir := filepath.Join(sharedDir, rel(t))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "x.txt"), []byte("old content"), 0o644); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	b, _ := json.Marshal(tools.WriteFileInput{Path: rel(t, "x.txt"), Content: "new"})
	if _, err := tools.WriteFileDefinition.Function(context.Background(), b); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "x.txt"))
	if string(data) != "new" {
		t.Fatalf("unexpected file content: %q", string(data))
	}
}

func TestWriteFile_Denied(t *testing.T) {
	for _, p := range []string{"go.mod", ".git/config", "../escape.txt", ""} {
		b, _ := json.Marshal(tools.WriteFileInput{Path: p, Content: "x"})
		if _, err := tools.WriteFileDefinition.Function(context.Background(), b); err == nil {
			t.Fatalf("expected error for %q", p)
		}
	}
}
