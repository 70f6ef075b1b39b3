package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/mwbotters/botkit/internal/input"
	"github.com/mwbotters/botkit/internal/logging"
	"github.com/mwbotters/botkit/internal/site"
	"github.com/mwbotters/botkit/internal/storage"
)

// Verdict is what the per-item processing step tells the run-loop to do
// next. Control flow is a value the loop switches on, not an exception
// it has to catch.
type Verdict int

const (
	// VerdictContinue counts the item as treated and moves on.
	VerdictContinue Verdict = iota
	// VerdictSkip counts the item as skipped and moves on.
	VerdictSkip
	// VerdictStop aborts this run but not the process.
	VerdictStop
	// VerdictQuit terminates the run and is observable afterwards via
	// Quit(), so a wrapping supervisor can stop restarting.
	VerdictQuit
)

// ErrSkipPage may be returned by InitPage to skip an item before it
// reaches the treat hook.
var ErrSkipPage = errors.New("skip this page")

// ErrNotImplemented means a concrete bot failed to supply the one
// required hook. This is a programming error and is never absorbed.
var ErrNotImplemented = errors.New("bot does not implement a treat hook")

// Hooks are the per-bot extension points. Only Treat is required.
type Hooks struct {
	// Setup runs once before iteration.
	Setup func() error
	// InitPage turns a raw work item into a page. Default: the item
	// must already be a *site.Page. Returning ErrSkipPage skips the
	// item without treating it.
	InitPage func(item any) (*site.Page, error)
	// SkipPage filters initialized pages. Default: keep everything.
	SkipPage func(page *site.Page) bool
	// Treat processes one page. Required.
	Treat func(ctx context.Context, page *site.Page) (Verdict, error)
	// Teardown runs exactly once, on every exit path.
	Teardown func()
}

// Runner drives a generator of work items through the hook pipeline:
// init, skip filter, treat, in that fixed order, one item at a time.
type Runner struct {
	Script    string
	Site      string
	Hooks     Hooks
	Generator <-chan any

	UI      logging.UI
	Engine  *input.Engine
	Options Options
	History *storage.RunHistory // optional

	// Simulate makes the save wrapper log instead of saving.
	Simulate bool
	// Verbose re-raises a keyboard interrupt after teardown instead of
	// swallowing it with a message.
	Verbose bool

	read    atomic.Int64
	saved   atomic.Int64
	skipped atomic.Int64

	always        atomic.Bool
	quitRequested bool
	genExhausted  bool
	runErr        error

	currentTitle string
	started      time.Time
	runID        int64
	exited       bool

	saver *asyncSaver
}

// Run iterates the generator until it is exhausted or a hook stops the
// run. Teardown is guaranteed on every exit path, including panics in
// treat and context cancellation.
func (r *Runner) Run(ctx context.Context) error {
	r.started = time.Now()
	r.saver = newAsyncSaver(r, 4)
	defer r.exit()

	if r.Hooks.Treat == nil {
		r.output(logging.LevelCritical, fmt.Sprintf("%s: no treat hook supplied", r.Script))
		r.runErr = ErrNotImplemented
		return ErrNotImplemented
	}

	if r.Options.Bool("always") {
		r.always.Store(true)
	}

	if r.History != nil {
		id, err := r.History.StartRun(r.Script, r.Site, r.started)
		if err != nil {
			r.output(logging.LevelWarning, fmt.Sprintf("could not record run start: %v", err))
		} else {
			r.runID = id
		}
	}

	if r.Hooks.Setup != nil {
		if err := r.Hooks.Setup(); err != nil {
			r.runErr = fmt.Errorf("setup failed: %w", err)
			return r.runErr
		}
	}

	for {
		var item any
		var ok bool
		select {
		case <-ctx.Done():
			return r.interrupted(ctx.Err())
		case item, ok = <-r.Generator:
			if !ok {
				r.genExhausted = true
				return nil
			}
		}

		verdict := r.processItem(ctx, item)
		switch verdict {
		case VerdictStop:
			r.output(logging.LevelInfo, "run stopped")
			return r.runErr
		case VerdictQuit:
			r.quitRequested = true
			r.output(logging.LevelInfo, "user quit requested")
			return nil
		}

		if r.runErr != nil {
			// Reported during exit; handed back so the caller decides
			// whether the process survives.
			return r.runErr
		}
	}
}

// processItem applies the hook pipeline to one item and returns the
// loop verdict. Panics in hooks are recovered and reported so teardown
// and the final summary still happen.
func (r *Runner) processItem(ctx context.Context, item any) (verdict Verdict) {
	defer func() {
		if rec := recover(); rec != nil {
			r.output(logging.LevelError, fmt.Sprintf("panic while processing item: %v\n%s", rec, debug.Stack()))
			r.runErr = fmt.Errorf("panic while processing item: %v", rec)
			verdict = VerdictStop
		}
	}()

	page, err := r.initPage(item)
	if err != nil {
		if errors.Is(err, ErrSkipPage) {
			r.skipped.Add(1)
			return VerdictContinue
		}
		r.output(logging.LevelWarning, fmt.Sprintf("could not initialize item: %v", err))
		r.skipped.Add(1)
		return VerdictContinue
	}

	r.announcePage(page)

	if r.Hooks.SkipPage != nil && r.Hooks.SkipPage(page) {
		r.skipped.Add(1)
		r.recordPage(page, storage.ActionSkipped, "")
		return VerdictContinue
	}

	verdict, err = r.Hooks.Treat(ctx, page)
	if err != nil {
		if errors.Is(err, input.ErrQuit) {
			return VerdictQuit
		}
		r.output(logging.LevelError, fmt.Sprintf("failed to treat %s: %v", page, err))
		r.recordPage(page, storage.ActionFailed, err.Error())
		r.runErr = err
		return VerdictStop
	}

	switch verdict {
	case VerdictContinue:
		r.read.Add(1)
		r.recordPage(page, storage.ActionRead, "")
	case VerdictSkip:
		r.skipped.Add(1)
		r.recordPage(page, storage.ActionSkipped, "")
	}
	return verdict
}

func (r *Runner) initPage(item any) (*site.Page, error) {
	if r.Hooks.InitPage != nil {
		return r.Hooks.InitPage(item)
	}
	page, ok := item.(*site.Page)
	if !ok {
		return nil, fmt.Errorf("work item %T is not a page", item)
	}
	return page, nil
}

// announcePage prints the page being worked on, once per page even if
// several hooks run for it.
func (r *Runner) announcePage(page *site.Page) {
	title := page.Title()
	if title == r.currentTitle {
		return
	}
	r.currentTitle = title
	r.output(logging.LevelStdout, fmt.Sprintf("\n>>> %s <<<", page))
}

func (r *Runner) interrupted(cause error) error {
	r.output(logging.LevelInfo, "interrupt received, shutting down")
	if r.Verbose {
		return cause
	}
	return nil
}

// exit runs teardown and prints the summary. It is idempotent so both
// the Run defer and an early failure path can reach it safely.
func (r *Runner) exit() {
	if r.exited {
		return
	}
	r.exited = true

	if r.saver != nil {
		if err := r.saver.flush(); err != nil {
			r.output(logging.LevelWarning, fmt.Sprintf("deferred saves failed: %v", err))
		}
	}

	if r.Hooks.Teardown != nil {
		r.Hooks.Teardown()
	}

	read := r.read.Load()
	saved := r.saved.Load()
	skipped := r.skipped.Load()

	r.output(logging.LevelStdout, fmt.Sprintf("%d pages read", read))
	r.output(logging.LevelStdout, fmt.Sprintf("%d pages written", saved))
	r.output(logging.LevelStdout, fmt.Sprintf("%d pages skipped", skipped))

	if !r.started.IsZero() {
		elapsed := time.Since(r.started).Round(time.Millisecond)
		r.output(logging.LevelStdout, fmt.Sprintf("execution time: %v", elapsed))
		if ops := read + saved; ops > 0 {
			r.output(logging.LevelStdout, fmt.Sprintf("%.2fs per operation", elapsed.Seconds()/float64(ops)))
		}
	}

	outcome := "successful"
	if r.runErr != nil {
		outcome = "exception"
		r.output(logging.LevelError, fmt.Sprintf("run terminated by exception: %v", r.runErr))
	}
	r.output(logging.LevelInfo, fmt.Sprintf("run %s (%s)", outcome, r.Script))

	if r.History != nil && r.runID > 0 {
		err := r.History.FinishRun(r.runID, int(read), int(saved), int(skipped), outcome, time.Now())
		if err != nil {
			r.output(logging.LevelWarning, fmt.Sprintf("could not record run end: %v", err))
		}
	}
}

// Quit reports whether the user explicitly asked to terminate. A
// supervisor that restarts bots on empty queues must check this.
func (r *Runner) Quit() bool {
	return r.quitRequested
}

// GeneratorExhausted reports whether the run consumed the whole
// generator.
func (r *Runner) GeneratorExhausted() bool {
	return r.genExhausted
}

// Counters returns the tri-counter (read, saved, skipped).
func (r *Runner) Counters() (read, saved, skipped int64) {
	return r.read.Load(), r.saved.Load(), r.skipped.Load()
}

func (r *Runner) recordPage(page *site.Page, action storage.PageAction, pageErr string) {
	if r.History == nil || r.runID == 0 {
		return
	}
	if err := r.History.RecordPage(r.runID, page.Title(), action, pageErr); err != nil {
		r.output(logging.LevelWarning, fmt.Sprintf("could not record page event: %v", err))
	}
}

func (r *Runner) output(level logging.Level, msg string) {
	if r.UI != nil {
		r.UI.Output(level, msg)
	}
}
