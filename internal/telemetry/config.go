package telemetry

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	observeEnabled bool

	logMu  sync.RWMutex
	logger = zap.NewNop()
)

func init() {
	// Read once at process start. Mid-run changes only take effect through the
	// explicit "1" override in ObserveEnabled.
	observeEnabled = os.Getenv("AGT_OBSERVE_JSON") == "1"
}

// ObserveEnabled reports whether JSONL emission is on.
func ObserveEnabled() bool {
	if os.Getenv("AGT_OBSERVE_JSON") == "1" {
		return true
	}
	return observeEnabled
}

// SetLogger routes emission failures to l. nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logMu.Lock()
	logger = l
	logMu.Unlock()
}

func log() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// eventsDir is AGT_ARTIFACTS_DIR when set, else .agent under the working directory.
func eventsDir() string {
	if d := os.Getenv("AGT_ARTIFACTS_DIR"); d != "" {
		return d
	}
	return ".agent"
}
