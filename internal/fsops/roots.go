// Package fsops performs the file operations behind the file tools, confined
// to the process-wide sandbox.
package fsops

import (
	"os"
	"sync"

	"github.com/petasbytes/go-agent/internal/safety"
)

var (
	sandboxMu    sync.Mutex
	sandboxReady bool
	current      safety.Sandbox
	sandboxErr   error
)

// Configure pins the sandbox roots explicitly. Empty read means the working
// directory; empty write means the read root. It replaces any earlier roots.
func Configure(readRoot, writeRoot string) error {
	sb, err := safety.NewSandbox(readRoot, writeRoot)
	if err != nil {
		return err
	}
	sandboxMu.Lock()
	current, sandboxErr, sandboxReady = sb, nil, true
	sandboxMu.Unlock()
	return nil
}

// sandbox returns the configured sandbox. Without a prior Configure it is
// resolved once from AGT_READ_ROOT and AGT_WRITE_ROOT.
func sandbox() (safety.Sandbox, error) {
	sandboxMu.Lock()
	defer sandboxMu.Unlock()
	if !sandboxReady {
		current, sandboxErr = safety.NewSandbox(os.Getenv("AGT_READ_ROOT"), os.Getenv("AGT_WRITE_ROOT"))
		sandboxReady = true
	}
	return current, sandboxErr
}

// Roots reports the active read and write roots.
func Roots() (read, write string, err error) {
	sb, err := sandbox()
	return sb.ReadRoot, sb.WriteRoot, err
}
