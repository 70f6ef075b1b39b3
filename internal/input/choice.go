package input

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mwbotters/botkit/internal/logging"
)

// ErrQuit is returned when the user picks the quit shortcut. It is a
// control-flow signal, not a failure, and callers must propagate it.
var ErrQuit = errors.New("user requested quit")

// Option is one selectable answer: a human label, a single shortcut
// key, and the value the engine resolves to.
type Option struct {
	Label    string
	Shortcut string
	Value    string
}

// Engine resolves interactive prompts against a UI. With Force set it
// never reads input and always resolves to the default, which is what
// automated runs and tests rely on.
type Engine struct {
	UI    logging.UI
	Force bool
}

// Choice presents the options and reads answers until one matches.
// Matching is case-insensitive on the shortcut. Empty input resolves to
// the default when one is configured. With allowQuit a [q]uit option is
// appended automatically and selecting it returns ErrQuit.
func (e *Engine) Choice(question string, options []Option, def string, allowQuit bool) (string, error) {
	if allowQuit {
		options = append(options, Option{Label: "Quit", Shortcut: "q", Value: "quit"})
	}

	if err := validateShortcuts(options); err != nil {
		return "", err
	}

	if e.Force {
		if def == "" {
			return "", fmt.Errorf("cannot answer %q non-interactively without a default", question)
		}
		return def, nil
	}

	prompt := renderPrompt(question, options, def)

	for {
		answer, err := e.UI.Input(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read answer: %w", err)
		}
		answer = strings.TrimSpace(answer)

		if answer == "" {
			if def != "" {
				return def, nil
			}
			continue
		}

		for _, opt := range options {
			if strings.EqualFold(answer, opt.Shortcut) {
				if allowQuit && opt.Value == "quit" {
					return "", ErrQuit
				}
				return opt.Value, nil
			}
		}

		e.UI.Output(logging.LevelWarning, fmt.Sprintf("invalid answer %q, try again", answer))
	}
}

// YesNo is the boolean specialization of Choice with the same quit and
// default semantics.
func (e *Engine) YesNo(question string, def bool, allowQuit bool) (bool, error) {
	defValue := "no"
	if def {
		defValue = "yes"
	}

	value, err := e.Choice(question, []Option{
		{Label: "Yes", Shortcut: "y", Value: "yes"},
		{Label: "No", Shortcut: "n", Value: "no"},
	}, defValue, allowQuit)
	if err != nil {
		return false, err
	}
	return value == "yes", nil
}

func validateShortcuts(options []Option) error {
	seen := make(map[string]bool, len(options))
	for _, opt := range options {
		key := strings.ToLower(opt.Shortcut)
		if key == "" {
			return fmt.Errorf("option %q has no shortcut", opt.Label)
		}
		if seen[key] {
			return fmt.Errorf("duplicate shortcut %q", opt.Shortcut)
		}
		seen[key] = true
	}
	return nil
}

// renderPrompt formats "question ([y]es, [N]o)" with the default
// shortcut upper-cased.
func renderPrompt(question string, options []Option, def string) string {
	parts := make([]string, 0, len(options))
	for _, opt := range options {
		shortcut := opt.Shortcut
		if opt.Value == def {
			shortcut = strings.ToUpper(shortcut)
		}
		label := opt.Label
		idx := strings.Index(strings.ToLower(label), strings.ToLower(opt.Shortcut))
		if idx >= 0 {
			label = label[:idx] + "[" + shortcut + "]" + label[idx+len(opt.Shortcut):]
		} else {
			label = fmt.Sprintf("%s [%s]", label, shortcut)
		}
		parts = append(parts, label)
	}
	return fmt.Sprintf("%s (%s) ", question, strings.Join(parts, ", "))
}
