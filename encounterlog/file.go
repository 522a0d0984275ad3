// Package encounterlog provides the encounter sinks the hunter logs into:
// an append-only text file, a SQLite history store, and a fan-out combiner.
// Sinks absorb their own failures; a full disk must not stop a hunt.
package encounterlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkmn-tools/shinyhunt-go/gamestate"
	"github.com/pkmn-tools/shinyhunt-go/logger"
)

// FileLogger appends one human-readable line per encounter.
type FileLogger struct {
	mu   sync.Mutex
	path string
}

// NewFileLogger creates the log's parent directory and returns the logger.
func NewFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create encounter log directory: %w", err)
	}
	return &FileLogger{path: path}, nil
}

// Log appends one line. Write failures are logged and swallowed.
func (f *FileLogger) Log(enc gamestate.Encounter, ordinal int) {
	line := formatLine(enc, ordinal, time.Now().UTC())

	f.mu.Lock()
	defer f.mu.Unlock()

	handle, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger.Warn("Encounter log open failed", "path", f.path, "error", err)
		return
	}
	defer handle.Close()

	if _, err := handle.WriteString(line + "\n"); err != nil {
		logger.Warn("Encounter log write failed", "path", f.path, "error", err)
	}
}

func formatLine(enc gamestate.Encounter, ordinal int, at time.Time) string {
	shinyFlag := "no"
	if enc.Shiny {
		shinyFlag = "SHINY"
	}
	return fmt.Sprintf("[%s] #%06d Species=%d TID=%d SID=%d PID=%d Shiny=%s",
		at.Format(time.RFC3339), ordinal, enc.Species,
		enc.TrainerID, enc.SecretID, enc.Personality, shinyFlag)
}

// Multi fans one encounter out to several sinks.
type Multi []interface {
	Log(enc gamestate.Encounter, ordinal int)
}

func (m Multi) Log(enc gamestate.Encounter, ordinal int) {
	for _, sink := range m {
		sink.Log(enc, ordinal)
	}
}
