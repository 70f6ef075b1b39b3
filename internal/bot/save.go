package bot

import (
	"context"
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/mwbotters/botkit/internal/comms"
	"github.com/mwbotters/botkit/internal/input"
	"github.com/mwbotters/botkit/internal/logging"
	"github.com/mwbotters/botkit/internal/site"
	"github.com/mwbotters/botkit/internal/storage"
)

// SaveOptions controls one save through the wrapper.
type SaveOptions struct {
	// Summary is shown in the confirmation prompt.
	Summary string
	// OldText and NewText, when both set, render a diff preview before
	// asking for confirmation.
	OldText string
	NewText string
	// Async defers the save to the background queue; the queue is
	// flushed before teardown completes.
	Async bool
	// IgnoreSaveRelated suppresses (logs and skips) edit conflicts,
	// blacklist hits, locked pages and generic save failures.
	IgnoreSaveRelated bool
	// IgnoreServerErrors suppresses server-side failures the same way.
	IgnoreServerErrors bool
}

// SavePage wraps one mutating operation with user confirmation and
// selective error suppression. It performs no retry: a suppressed
// failure is logged and counted as a skip, nothing more. Returns true
// only when the save ran (or was queued) successfully; a declined
// confirmation or a suppressed failure returns false with a nil error.
//
// A quit answer propagates input.ErrQuit; treat hooks pass it up so the
// run-loop can translate it into VerdictQuit.
func (r *Runner) SavePage(ctx context.Context, page *site.Page, save func(context.Context) error, opts SaveOptions) (bool, error) {
	if !r.always.Load() {
		proceed, err := r.confirmSave(page, opts)
		if err != nil {
			return false, err
		}
		if !proceed {
			r.skipped.Add(1)
			return false, nil
		}
	}

	if r.Simulate {
		r.output(logging.LevelInfo, fmt.Sprintf("simulation: would save %s (%s)", page, opts.Summary))
		r.saved.Add(1)
		return true, nil
	}

	if opts.Async {
		r.saver.put(func(ctx context.Context) error {
			_, err := r.doSave(ctx, page, save, opts)
			return err
		})
		return true, nil
	}

	return r.doSave(ctx, page, save, opts)
}

// doSave runs the save function and applies the suppression policy. A
// suppressed failure is logged and counted as a skip, reported as
// (false, nil).
func (r *Runner) doSave(ctx context.Context, page *site.Page, save func(context.Context) error, opts SaveOptions) (bool, error) {
	err := save(ctx)
	if err == nil {
		r.saved.Add(1)
		r.recordPage(page, storage.ActionSaved, "")
		return true, nil
	}

	switch {
	case comms.IsSaveRelated(err) && opts.IgnoreSaveRelated:
		r.output(logging.LevelWarning, fmt.Sprintf("skipping %s: %v", page, err))
	case comms.IsServerError(err) && opts.IgnoreServerErrors:
		r.output(logging.LevelWarning, fmt.Sprintf("skipping %s after server error: %v", page, err))
	default:
		return false, err
	}

	r.skipped.Add(1)
	r.recordPage(page, storage.ActionSkipped, err.Error())
	return false, nil
}

// confirmSave asks the user what to do with this edit. "all" durably
// flips the always option for the rest of the run.
func (r *Runner) confirmSave(page *site.Page, opts SaveOptions) (bool, error) {
	if opts.OldText != "" || opts.NewText != "" {
		r.showDiff(opts.OldText, opts.NewText)
	}

	question := fmt.Sprintf("Save %s?", page)
	if opts.Summary != "" {
		question = fmt.Sprintf("Save %s (%s)?", page, opts.Summary)
	}

	answer, err := r.Engine.Choice(question, []input.Option{
		{Label: "Yes", Shortcut: "y", Value: "yes"},
		{Label: "No", Shortcut: "n", Value: "no"},
		{Label: "All", Shortcut: "a", Value: "all"},
	}, "no", true)
	if err != nil {
		// input.ErrQuit included: the quit signal is never absorbed
		// here.
		return false, err
	}

	switch answer {
	case "all":
		r.always.Store(true)
		return true, nil
	case "yes":
		return true, nil
	default:
		return false, nil
	}
}

// showDiff prints the pending change as a character diff.
func (r *Runner) showDiff(oldText, newText string) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	r.output(logging.LevelStdout, dmp.DiffPrettyText(diffs))
}
