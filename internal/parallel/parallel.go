// Package parallel splits index ranges over worker goroutines.
package parallel

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Workers resolves a requested worker count; values below one mean all
// available CPUs.
func Workers(n int) int {
	if n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// Split1D returns the half-open range [start, end) of part out of parts
// contiguous pieces of [0, total). Piece sizes differ by at most one, the
// remainder going to the first pieces.
func Split1D(total, parts, part int) (start, end int) {
	size := total / parts
	remainder := total % parts
	start = part*size + min(part, remainder)
	end = start + size
	if part < remainder {
		end++
	}
	return
}

// For runs fn over [0, n) split into at most workers contiguous chunks and
// waits for all of them. fn receives its worker number, which callers use
// to select per-worker scratch space.
func For(workers, n int, fn func(worker, start, end int)) {
	if n <= 0 {
		return
	}
	workers = min(Workers(workers), n)
	if workers == 1 {
		fn(0, 0, n)
		return
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start, end := Split1D(n, workers, w)
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			fn(w, start, end)
		}(w, start, end)
	}
	wg.Wait()
}

// Each runs fn for every index in [0, n) on up to workers goroutines pulling
// from a shared queue, for tasks of uneven cost. The first error returned
// is reported; remaining tasks still run.
func Each(workers, n int, fn func(worker, i int) error) error {
	if n <= 0 {
		return nil
	}
	workers = min(Workers(workers), n)
	tasks := make(chan int)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			var first error
			for i := range tasks {
				if err := fn(w, i); err != nil && first == nil {
					first = err
				}
			}
			return first
		})
	}
	for i := 0; i < n; i++ {
		tasks <- i
	}
	close(tasks)
	return g.Wait()
}
