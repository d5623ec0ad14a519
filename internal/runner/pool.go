package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	log "github.com/sirupsen/logrus"
)

// runPool hands every job index to fn on up to workers goroutines. The
// first error disposes the queue so the remaining jobs are dropped, and
// that error is returned.
func runPool(ctx context.Context, workers, jobs int, fn func(ctx context.Context, i int) error) error {
	if jobs == 0 {
		return nil
	}
	if workers > jobs {
		workers = jobs
	}

	q := queue.New(int64(jobs))
	for i := 0; i < jobs; i++ {
		if err := q.Put(i); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		once     sync.Once
		firstErr error
		wg       sync.WaitGroup
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
			left := q.Dispose()
			log.WithFields(log.Fields{
				"error":        err,
				"jobs dropped": len(left),
			}).Debug("stopping worker pool")
		})
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !q.Empty() {
				if err := ctx.Err(); err != nil {
					fail(err)
					return
				}
				items, err := q.Poll(1, time.Millisecond)
				if errors.Is(err, queue.ErrTimeout) {
					continue
				}
				if err != nil {
					// disposed
					return
				}
				if err := fn(ctx, items[0].(int)); err != nil {
					fail(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
