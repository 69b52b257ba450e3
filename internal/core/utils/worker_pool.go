package utils

import "sync"

type Result[T any] struct {
	Value T
	Err   error
}

// MapConcurrent applies fn to every input using at most maxWorkers
// goroutines and returns the results in input order, so callers can match
// responses back to the records that produced them.
func MapConcurrent[In any, Out any](inputs []In, maxWorkers int, fn func(In) (Out, error)) []Result[Out] {
	results := make([]Result[Out], len(inputs))

	workers := min(len(inputs), maxWorkers)
	if workers < 1 {
		return results
	}

	indices := make(chan int, len(inputs))
	for i := range inputs {
		indices <- i
	}
	close(indices)

	wg := sync.WaitGroup{}
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indices {
				out, err := fn(inputs[i])
				results[i] = Result[Out]{Value: out, Err: err}
			}
		}()
	}
	wg.Wait()

	return results
}
