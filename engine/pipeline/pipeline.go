// Package pipeline implements the producer/consumer shape shared by every
// command: a bounded worker pool fans out over the outer axis, a single
// writer goroutine owns the output sink, and a shared atomic flag gives
// cooperative SIGINT cancellation (§4.8, §5). It is grounded on the
// teacher's shard-search feeder/worker loop (golang.org/x/sync/errgroup
// plus a channel sized to the worker count).
package pipeline

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sourmash-bio/sketchsrch/internal/metrics"
)

// Row is the minimal contract a pipeline result must satisfy: nothing, in
// fact -- rows are opaque to the pipeline and handed to the Sink
// untouched. Row is an alias for interface{}, so nothing checks at compile
// time that a Source and its Sink agree on the concrete row type; the Sink
// type-asserts each row itself.
type Row = interface{}

// Source produces rows for index i of an outer axis of size N. Returning
// (nil, nil) means "nothing to emit for this index" (e.g. a load failure
// already accounted for in caller-owned counters).
type Source func(ctx context.Context, i int) ([]Row, error)

// Sink consumes rows from the single writer goroutine. Implementations are
// expected to flush after every row themselves (sink.Sink does).
type Sink func(row Row) error

// Interrupted is a shared, process-wide cooperative-cancellation flag.
// Workers check it between inner-loop iterations and before sending;
// signal handling in cmd/ sets it on SIGINT.
type Interrupted struct {
	flag int32
}

func (i *Interrupted) Set()        { atomic.StoreInt32(&i.flag, 1) }
func (i *Interrupted) IsSet() bool { return atomic.LoadInt32(&i.flag) == 1 }

// Run fans Source out across a bounded worker pool sized to GOMAXPROCS,
// feeds every produced row through a channel sized to the worker count
// (back-pressuring producers when the writer lags), and drains it in a
// single writer goroutine that owns sink exclusively. On interrupted
// tripping, workers stop producing new rows and the writer drains whatever
// is already buffered before returning; no partial row is ever written.
func Run(ctx context.Context, n int, source Source, sink Sink, interrupted *Interrupted) error {
	workers := workerCount()
	rows := make(chan Row, workers)
	indexes := make(chan int, workers)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(indexes)
		for i := 0; i < n; i++ {
			if interrupted != nil && interrupted.IsSet() {
				return nil
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			case indexes <- i:
			}
		}
		return nil
	})

	var workerGroup errgroup.Group
	for w := 0; w < workers; w++ {
		workerGroup.Go(func() error {
			metrics.WorkersRunning.Inc()
			defer metrics.WorkersRunning.Dec()
			for i := range indexes {
				if interrupted != nil && interrupted.IsSet() {
					continue
				}
				produced, err := source(gctx, i)
				if err != nil {
					return err
				}
				for _, row := range produced {
					if interrupted != nil && interrupted.IsSet() {
						break
					}
					select {
					case <-gctx.Done():
						return gctx.Err()
					case rows <- row:
					}
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		err := workerGroup.Wait()
		close(rows)
		return err
	})

	writerErr := make(chan error, 1)
	go func() {
		var err error
		for row := range rows {
			if err != nil {
				continue // drain the channel so producers never block on a dead writer
			}
			if werr := sink(row); werr != nil {
				err = werr
			} else {
				metrics.RowsWrittenTotal.Inc()
			}
		}
		writerErr <- err
	}()

	err := g.Wait()
	if interrupted != nil && interrupted.IsSet() {
		metrics.Interrupted.Inc()
	}
	if err != nil {
		<-writerErr
		return err
	}
	return <-writerErr
}

func workerCount() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	return n
}
