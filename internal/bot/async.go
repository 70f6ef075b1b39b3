package bot

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// asyncSaver runs deferred saves with bounded concurrency. It exists so
// slow writes do not stall the run-loop; the loop stays the single
// logical thread of control and only hands completed work here.
type asyncSaver struct {
	grp *errgroup.Group
	ctx context.Context
}

func newAsyncSaver(r *Runner, limit int) *asyncSaver {
	grp, ctx := errgroup.WithContext(context.Background())
	grp.SetLimit(limit)
	return &asyncSaver{grp: grp, ctx: ctx}
}

// put queues one save. The function carries its own suppression policy;
// an error returned here is one that was not suppressed.
func (s *asyncSaver) put(fn func(context.Context) error) {
	s.grp.Go(func() error {
		return fn(s.ctx)
	})
}

// flush waits for every queued save. Called once during teardown.
func (s *asyncSaver) flush() error {
	return s.grp.Wait()
}
