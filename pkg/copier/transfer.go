package copier

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/ib-77/chunkflow/pkg/callback"
	"github.com/ib-77/chunkflow/pkg/content"
	"github.com/ib-77/chunkflow/pkg/flow"
)

const DefaultParallelism = 4

// Transfer copies src into sink and waits for the outcome. When ctx ends
// first the copy is aborted with ctx.Err() and the result is a cancellation.
func Transfer(ctx context.Context, src content.Source, sink content.Sink, opts ...Option) flow.Result[Stats] {
	w := callback.NewWaiter()
	c := New(src, sink, w, opts...)

	stop := context.AfterFunc(ctx, func() {
		c.Abort(ctx.Err())
	})
	defer stop()

	c.Start()
	<-w.Done()

	return flow.FromError(c.Stats(), w.Err())
}

type Job struct {
	Name    string
	Source  content.Source
	Sink    content.Sink
	Options []Option
}

func (j Job) String() string {
	if j.Name != "" {
		return j.Name
	}
	return "unnamed"
}

// TransferAll runs jobs concurrently, at most flow.GetWorkerMaxCount(ctx,
// DefaultParallelism) at a time. Results keep the order of jobs. The error
// joins every failed job; cancelled jobs are not errors.
//
// With flow.WithProcessOptions(ctx, false) the first failure cancels the
// jobs still running or waiting.
func TransferAll(ctx context.Context, jobs []Job) ([]flow.Result[Stats], error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopOnFailure := !flow.IsProcessRemainingEnabled(ctx, true)
	results := make([]flow.Result[Stats], len(jobs))

	var (
		mu   sync.Mutex
		merr *multierror.Error
	)

	g := new(errgroup.Group)
	g.SetLimit(flow.GetWorkerMaxCount(ctx, DefaultParallelism))

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				job.Source.Fail(err)
				results[i] = flow.Cancel[Stats](err)
				return nil
			}

			res := Transfer(ctx, job.Source, job.Sink, job.Options...)
			results[i] = res

			if res.IsFailure() {
				mu.Lock()
				merr = multierror.Append(merr, fmt.Errorf("job %d (%s): %w", i, job, res.Err()))
				mu.Unlock()

				if stopOnFailure {
					cancel()
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	return results, merr.ErrorOrNil()
}
