package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewVerbosityMapping(t *testing.T) {
	tests := []struct {
		verbose int
		want    zerolog.Level
	}{
		{0, zerolog.InfoLevel},
		{1, zerolog.DebugLevel},
		{2, zerolog.TraceLevel},
		{5, zerolog.TraceLevel},
	}

	for _, tt := range tests {
		if got := New(tt.verbose, false).GetLevel(); got != tt.want {
			t.Errorf("New(%d) level = %v, want %v", tt.verbose, got, tt.want)
		}
	}
}

func TestConsoleUIStdoutRouting(t *testing.T) {
	var buf bytes.Buffer
	ui := &ConsoleUI{
		log:    zerolog.Nop(),
		stdout: &buf,
	}

	ui.Output(LevelStdout, "payload line")
	if got := buf.String(); got != "payload line\n" {
		t.Errorf("stdout payload = %q", got)
	}

	// Leveled messages never reach the payload stream.
	buf.Reset()
	ui.Output(LevelInfo, "status message")
	if buf.Len() != 0 {
		t.Errorf("info message leaked to stdout: %q", buf.String())
	}
}

func TestConsoleUICriticalDoesNotExit(t *testing.T) {
	var logBuf bytes.Buffer
	ui := &ConsoleUI{
		log:    zerolog.New(&logBuf),
		stdout: &bytes.Buffer{},
	}

	ui.Output(LevelCritical, "unrecoverable state")

	if !strings.Contains(logBuf.String(), "unrecoverable state") {
		t.Errorf("critical message missing: %q", logBuf.String())
	}
	if !strings.Contains(logBuf.String(), `"level":"fatal"`) {
		t.Errorf("critical message not at fatal severity: %q", logBuf.String())
	}
}
