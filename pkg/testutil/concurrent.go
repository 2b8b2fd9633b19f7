package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	"hearthgate/pkg/platform/sentinel"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes   int32
	AlreadyUsed int32
	Conflicts   int32
	NotFounds   int32
	Errors      int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.AlreadyUsed + r.Conflicts + r.NotFounds + r.Errors
}

// RunConcurrent executes fn in parallel goroutines and categorizes the
// returned errors by sentinel. All goroutines are released at once so they
// contend on the code under test.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var successes, alreadyUsed, conflicts, notFounds, errs atomic.Int32

	Collect(goroutines, func(idx int) struct{} {
		err := fn(idx)
		switch {
		case err == nil:
			successes.Add(1)
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			alreadyUsed.Add(1)
		case errors.Is(err, sentinel.ErrConflict):
			conflicts.Add(1)
		case errors.Is(err, sentinel.ErrNotFound):
			notFounds.Add(1)
		default:
			errs.Add(1)
		}
		return struct{}{}
	})

	return &ConcurrentResult{
		Successes:   successes.Load(),
		AlreadyUsed: alreadyUsed.Load(),
		Conflicts:   conflicts.Load(),
		NotFounds:   notFounds.Load(),
		Errors:      errs.Load(),
	}
}

// Collect executes fn in parallel goroutines and returns every result,
// indexed by goroutine.
func Collect[T any](goroutines int, fn func(idx int) T) []T {
	results := make([]T, goroutines)
	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := range goroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			results[idx] = fn(idx)
		}(i)
	}

	close(start)
	wg.Wait()
	return results
}
