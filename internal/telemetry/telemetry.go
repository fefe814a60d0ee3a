// Package telemetry appends opt-in JSONL events (AGT_OBSERVE_JSON=1) for
// turns, model requests and tool executions. Events carry sizes and counts,
// never raw user text or tool payloads.
package telemetry

import (
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const eventsFile = "events.jsonl"

// appendMu serializes appends so concurrent events never interleave.
var appendMu sync.Mutex

// Emit appends one event line when observation is enabled. The line holds
// fields plus "event" and an RFC3339Nano "time"; fields is not modified.
// Failures go to the logger installed with SetLogger.
func Emit(name string, fields map[string]any) {
	if !ObserveEnabled() {
		return
	}
	event := maps.Clone(fields)
	if event == nil {
		event = make(map[string]any, 2)
	}
	event["event"] = name
	event["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	line, err := json.Marshal(event)
	if err != nil {
		log().Warn("telemetry: marshal", zap.String("event", name), zap.Error(err))
		return
	}
	appendLine(eventsDir(), append(line, '\n'))
}

func appendLine(dir string, line []byte) {
	appendMu.Lock()
	defer appendMu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log().Warn("telemetry: mkdir", zap.String("dir", dir), zap.Error(err))
		return
	}
	path := filepath.Join(dir, eventsFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log().Warn("telemetry: open", zap.String("path", path), zap.Error(err))
		return
	}
	_, err = f.Write(line)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log().Warn("telemetry: write", zap.String("path", path), zap.Error(err))
	}
}
