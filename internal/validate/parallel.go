package validate

import (
	"sync"

	"github.com/inodb/vav/internal/summary"
	"github.com/inodb/vav/internal/variant"
)

// Source is a ReadSource owned by one worker.
type Source interface {
	ReadSource
	Close() error
}

// OpenFunc opens a fresh Source. Each worker calls it once.
type OpenFunc func() (Source, error)

// WorkItem holds a parsed variant ready for evaluation.
type WorkItem struct {
	Seq     int
	Key     string // text the variant was given as
	Variant *variant.Variant
}

// WorkResult holds the summary for a single variant.
type WorkResult struct {
	Seq     int
	Key     string
	Variant *variant.Variant
	Summary summary.Summary
	Err     error
}

// ParallelEvaluate evaluates work items using a pool of workers, each with
// its own source since alignment readers are not safe for concurrent use.
// Results are sent in arrival order; use OrderedCollect for input order.
// If workers is less than 1, a single worker is used.
func (val *Validator) ParallelEvaluate(items <-chan WorkItem, workers int, open OpenFunc) <-chan WorkResult {
	if workers < 1 {
		workers = 1
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()

			src, openErr := open()
			if openErr == nil {
				defer src.Close()
			}
			for item := range items {
				r := WorkResult{Seq: item.Seq, Key: item.Key, Variant: item.Variant}
				if openErr != nil {
					r.Err = openErr
				} else {
					r.Summary, r.Err = val.Evaluate(src, item.Variant)
				}
				results <- r
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// Items feeds work items into a closed channel.
func Items(items []WorkItem) <-chan WorkItem {
	ch := make(chan WorkItem, len(items))
	for _, it := range items {
		ch <- it
	}
	close(ch)
	return ch
}
