// core/pool/pool.go
package pool

import (
	"context"
	"sort"
	"sync"

	"flowsync-core/histogram"
)

// DefaultThreads is the worker count used when none is configured.
const DefaultThreads = 4

// LaneTask is one independent decode-and-histogram unit of work.
type LaneTask struct {
	Lane int
	Run  func() ([]histogram.Histogram, error)
}

// LaneResult tags a task outcome: either histograms or the failure reason.
// Partial work is never discarded on a sibling's error.
type LaneResult struct {
	Lane       int
	Histograms []histogram.Histogram
	Err        error
}

// Run executes the tasks on a fixed-size pool of workers and returns one
// result per task, ordered by lane. A failing task aborts only itself;
// the pool always drains. Tasks not yet started when ctx is cancelled are
// recorded as failed with ctx.Err().
func Run(ctx context.Context, threads int, tasks []LaneTask) []LaneResult {
	if threads < 1 {
		threads = DefaultThreads
	}

	jobs := make(chan LaneTask)
	results := make(chan LaneResult, len(tasks))

	var wg sync.WaitGroup
	wg.Add(threads)
	for w := 0; w < threads; w++ {
		go func() {
			defer wg.Done()
			for t := range jobs {
				if err := ctx.Err(); err != nil {
					results <- LaneResult{Lane: t.Lane, Err: err}
					continue
				}
				hs, err := t.Run()
				results <- LaneResult{Lane: t.Lane, Histograms: hs, Err: err}
			}
		}()
	}

	for _, t := range tasks {
		jobs <- t
	}
	close(jobs)
	wg.Wait()
	close(results)

	// Single merge point: collect and order the tagged results.
	out := make([]LaneResult, 0, len(tasks))
	for r := range results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Lane < out[j].Lane })
	return out
}
