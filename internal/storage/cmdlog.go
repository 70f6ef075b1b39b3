package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// CommandLog appends one line per invocation (timestamp plus argument
// vector). Writing is best-effort: callers log a warning on error and
// carry on.
type CommandLog struct {
	mu   sync.Mutex
	file *os.File
}

// OpenCommandLog opens (creating if needed) the append-only log.
func OpenCommandLog(path string) (*CommandLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open command log: %w", err)
	}

	return &CommandLog{file: file}, nil
}

// Record appends one invocation entry.
func (l *CommandLog) Record(at time.Time, args []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("%s\t%s\n", at.Format(time.RFC3339), strings.Join(args, " "))
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("failed to write command log entry: %w", err)
	}
	return nil
}

// Close closes the log file.
func (l *CommandLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
