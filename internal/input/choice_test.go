package input

import (
	"errors"
	"testing"

	"github.com/mwbotters/botkit/internal/logging"
)

// scriptedUI feeds canned answers and records output.
type scriptedUI struct {
	answers  []string
	messages []string
	reads    int
}

func (ui *scriptedUI) Output(level logging.Level, msg string) {
	ui.messages = append(ui.messages, msg)
}

func (ui *scriptedUI) Input(prompt string) (string, error) {
	if ui.reads >= len(ui.answers) {
		return "", errors.New("no more scripted answers")
	}
	answer := ui.answers[ui.reads]
	ui.reads++
	return answer, nil
}

func yesNoOptions() []Option {
	return []Option{
		{Label: "Yes", Shortcut: "y", Value: "yes"},
		{Label: "No", Shortcut: "n", Value: "no"},
	}
}

func TestChoiceMatchesShortcut(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"lowercase", "y", "yes"},
		{"uppercase", "N", "no"},
		{"padded", "  y ", "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ui := &scriptedUI{answers: []string{tt.answer}}
			e := &Engine{UI: ui}

			got, err := e.Choice("Save?", yesNoOptions(), "", false)
			if err != nil {
				t.Fatalf("Choice() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Choice() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChoiceDefaultOnEmpty(t *testing.T) {
	ui := &scriptedUI{answers: []string{""}}
	e := &Engine{UI: ui}

	got, err := e.Choice("Save?", yesNoOptions(), "no", false)
	if err != nil {
		t.Fatalf("Choice() error = %v", err)
	}
	if got != "no" {
		t.Errorf("Choice() = %q, want default %q", got, "no")
	}
}

func TestChoiceForceNeverReadsInput(t *testing.T) {
	ui := &scriptedUI{}
	e := &Engine{UI: ui, Force: true}

	got, err := e.Choice("Save?", yesNoOptions(), "no", false)
	if err != nil {
		t.Fatalf("Choice() error = %v", err)
	}
	if got != "no" {
		t.Errorf("Choice() = %q, want %q", got, "no")
	}
	if ui.reads != 0 {
		t.Errorf("force mode read input %d times", ui.reads)
	}
}

func TestChoiceForceWithoutDefaultFails(t *testing.T) {
	e := &Engine{UI: &scriptedUI{}, Force: true}

	if _, err := e.Choice("Save?", yesNoOptions(), "", false); err == nil {
		t.Error("Choice() with force and no default should fail")
	}
}

func TestChoiceRepromptsOnNoMatch(t *testing.T) {
	ui := &scriptedUI{answers: []string{"x", "zz", "y"}}
	e := &Engine{UI: ui}

	got, err := e.Choice("Save?", yesNoOptions(), "", false)
	if err != nil {
		t.Fatalf("Choice() error = %v", err)
	}
	if got != "yes" {
		t.Errorf("Choice() = %q, want %q", got, "yes")
	}
	if ui.reads != 3 {
		t.Errorf("Choice() read %d answers, want 3", ui.reads)
	}
}

func TestChoiceQuit(t *testing.T) {
	ui := &scriptedUI{answers: []string{"q"}}
	e := &Engine{UI: ui}

	_, err := e.Choice("Save?", yesNoOptions(), "", true)
	if !errors.Is(err, ErrQuit) {
		t.Errorf("Choice() error = %v, want ErrQuit", err)
	}
}

func TestChoiceDuplicateShortcutRejected(t *testing.T) {
	opts := []Option{
		{Label: "Yes", Shortcut: "y", Value: "yes"},
		{Label: "Yell", Shortcut: "Y", Value: "yell"},
	}
	e := &Engine{UI: &scriptedUI{}}

	if _, err := e.Choice("Save?", opts, "", false); err == nil {
		t.Error("duplicate shortcuts (case-insensitive) should be rejected")
	}
}

func TestYesNo(t *testing.T) {
	ui := &scriptedUI{answers: []string{"y"}}
	e := &Engine{UI: ui}

	got, err := e.YesNo("Proceed?", false, false)
	if err != nil {
		t.Fatalf("YesNo() error = %v", err)
	}
	if !got {
		t.Error("YesNo() = false, want true")
	}
}

func TestYesNoDefault(t *testing.T) {
	e := &Engine{UI: &scriptedUI{}, Force: true}

	got, err := e.YesNo("Proceed?", true, false)
	if err != nil {
		t.Fatalf("YesNo() error = %v", err)
	}
	if !got {
		t.Error("YesNo() with default true = false")
	}
}
