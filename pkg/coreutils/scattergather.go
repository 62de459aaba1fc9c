/*
 * Copyright (c) 2024-present RPM Software, Ltd.
 */

package coreutils

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// MaxParallelCalls caps the number of simultaneous in-flight platform
// calls a batch operation may make. The bound exists to respect the
// platform's rate limits, not for CPU parallelism.
const MaxParallelCalls = 20

// ScatterGather concurrently maps every element of source with mapper
// using a pool of workers goroutines and feeds the produced values to
// gatherer, which runs in a single goroutine and therefore needs no
// synchronisation of its own.
//
// On the first mapper error every goroutine is cancelled and that error
// is returned. workers <= 0 defaults to 1; callers fanning out platform
// calls pass MaxParallelCalls.
func ScatterGather[IN any, OUT any](
	outerCtx context.Context,
	source []IN,
	workers int,
	mapper func(IN) (OUT, error),
	gatherer func(OUT),
) (err error) {
	if workers <= 0 {
		workers = 1
	}

	g, workersCtx := errgroup.WithContext(outerCtx)

	tasks := make(chan IN)
	g.Go(func() error {
		defer close(tasks)
		for _, v := range source {
			select {
			case <-workersCtx.Done():
				return nil
			case tasks <- v:
			}
		}
		return nil
	})

	results := make(chan OUT)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			defer wg.Done()
			for workersCtx.Err() == nil {
				select {
				case <-workersCtx.Done():
					return nil
				case in, ok := <-tasks:
					if !ok {
						return nil
					}
					out, err := mapper(in)
					if err != nil {
						return err
					}
					select {
					case results <- out:
					case <-workersCtx.Done():
						return nil
					}
				}
			}
			return nil
		})
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	g.Go(func() error {
		for {
			select {
			case <-workersCtx.Done():
				return nil
			case r, ok := <-results:
				if !ok {
					return nil
				}
				gatherer(r)
			}
		}
	})
	if err = g.Wait(); err == nil {
		err = outerCtx.Err()
	}
	return err
}
