// Package async runs independent named computations concurrently over a
// bounded worker set and collects their results by name.
package async

import (
	"context"
	"sync"
)

// Task is one named computation.
type Task struct {
	Name string
	Run  func() (any, error)
}

// Result carries a task's outcome.
type Result struct {
	Value any
	Err   error
}

// RunAll executes the tasks on at most workers goroutines and returns the
// results keyed by task name. A canceled context stops dispatching; results
// collected so far are returned.
func RunAll(ctx context.Context, workers int, tasks []Task) map[string]Result {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	type namedResult struct {
		name   string
		result Result
	}

	queue := make(chan Task)
	out := make(chan namedResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				value, err := task.Run()
				select {
				case out <- namedResult{name: task.Name, result: Result{Value: value, Err: err}}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(queue)
		for _, task := range tasks {
			select {
			case queue <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make(map[string]Result, len(tasks))
	for r := range out {
		results[r.name] = r.result
	}
	return results
}
