package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
)

// Level identifies the routing class of a user-facing message.
type Level int

const (
	LevelDebug Level = iota
	LevelVerbose
	LevelInfo
	LevelWarning
	LevelError
	LevelCritical
	// LevelStdout is payload output, printed raw to standard out
	// regardless of verbosity.
	LevelStdout
)

// UI routes leveled messages to the user and reads answers back.
// The console implementation below is the default; tests substitute
// their own.
type UI interface {
	Output(level Level, msg string)
	Input(prompt string) (string, error)
}

// ConsoleUI renders messages through a zerolog console writer and reads
// input lines with readline.
type ConsoleUI struct {
	log    zerolog.Logger
	stdout io.Writer

	mu sync.Mutex
	rl *readline.Instance
}

// NewConsoleUI creates a console UI. verbose levels: 0 shows info and
// above, 1 adds verbose, 2 adds debug.
func NewConsoleUI(verbose int, color bool) *ConsoleUI {
	return &ConsoleUI{
		log:    New(verbose, color),
		stdout: os.Stdout,
	}
}

// New returns a zerolog logger writing human-readable output to stderr.
func New(verbose int, color bool) zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !color}

	level := zerolog.InfoLevel
	switch {
	case verbose >= 2:
		level = zerolog.TraceLevel
	case verbose == 1:
		level = zerolog.DebugLevel
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

// Output routes a message to the appropriate sink for its level.
func (ui *ConsoleUI) Output(level Level, msg string) {
	switch level {
	case LevelDebug:
		ui.log.Trace().Msg(msg)
	case LevelVerbose:
		ui.log.Debug().Msg(msg)
	case LevelInfo:
		ui.log.Info().Msg(msg)
	case LevelWarning:
		ui.log.Warn().Msg(msg)
	case LevelError:
		ui.log.Error().Msg(msg)
	case LevelCritical:
		// WithLevel(FatalLevel) logs at fatal severity without exiting;
		// termination is the caller's decision.
		ui.log.WithLevel(zerolog.FatalLevel).Msg(msg)
	case LevelStdout:
		fmt.Fprintln(ui.stdout, msg)
	}
}

// Input prompts the user and reads one line. The readline instance is
// created on first use so non-interactive runs never touch the terminal.
func (ui *ConsoleUI) Input(prompt string) (string, error) {
	ui.mu.Lock()
	defer ui.mu.Unlock()

	if ui.rl == nil {
		rl, err := readline.New("")
		if err != nil {
			return "", fmt.Errorf("failed to open terminal: %w", err)
		}
		ui.rl = rl
	}

	ui.rl.SetPrompt(prompt)
	return ui.rl.Readline()
}

// Close releases the terminal if Input was ever used.
func (ui *ConsoleUI) Close() error {
	ui.mu.Lock()
	defer ui.mu.Unlock()

	if ui.rl != nil {
		return ui.rl.Close()
	}
	return nil
}

// Logger exposes the underlying structured logger for components that
// log directly.
func (ui *ConsoleUI) Logger() zerolog.Logger {
	return ui.log
}
