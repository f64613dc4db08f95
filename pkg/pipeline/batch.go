package pipeline

import (
	"fmt"
	"sync"

	"github.com/coolbeans/lexchain/pkg/run"
)

// parallelFlatMap fans items out to a bounded worker pool and concatenates
// each item's results in input order. One batch is one item; a panicking
// batch is logged and dropped without corrupting its neighbors, matching the
// error-propagation rule that a batch failure aborts only that batch.
func parallelFlatMap[T any, R any](rc *run.Context, workers int, items []T, fn func(T) []R) []R {
	if workers < 1 {
		workers = 1
	}
	if len(items) == 0 {
		return nil
	}

	results := make([][]R, len(items))
	jobs := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for i := range jobs {
			results[i] = runBatch(rc, i, items[i], fn)
		}
	}

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go worker()
	}
	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var flat []R
	for _, batch := range results {
		flat = append(flat, batch...)
	}
	return flat
}

// runBatch isolates one batch so a panic aborts only that batch.
func runBatch[T any, R any](rc *run.Context, index int, item T, fn func(T) []R) (out []R) {
	defer func() {
		if r := recover(); r != nil {
			rc.Logger.Error("batch failed",
				"batch", index, "error", fmt.Sprintf("%v", r))
			out = nil
		}
	}()
	return fn(item)
}
