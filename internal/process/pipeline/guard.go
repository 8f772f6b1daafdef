package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Resource is something a run opens up front and releases on exit.
type Resource interface {
	Name() string
	Open(ctx context.Context) error
	Close() error
}

// Acquire opens all resources concurrently. When any of them fails, the
// ones that did open are closed and the first error is returned. The
// returned release func closes every resource concurrently.
func Acquire(ctx context.Context, resources ...Resource) (func() error, error) {
	opened := make([]bool, len(resources))

	var g errgroup.Group

	for i, r := range resources {
		g.Go(func() error {
			if err := r.Open(ctx); err != nil {
				return fmt.Errorf("open %s: %w", r.Name(), err)
			}

			opened[i] = true

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var partial []Resource

		for i, r := range resources {
			if opened[i] {
				partial = append(partial, r)
			}
		}

		if closeErr := closeAll(partial); closeErr != nil {
			return nil, errors.Join(err, closeErr)
		}

		return nil, err
	}

	return func() error { return closeAll(resources) }, nil
}

func closeAll(resources []Resource) error {
	errs := make([]error, len(resources))

	var wg sync.WaitGroup

	for i, r := range resources {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if err := r.Close(); err != nil {
				errs[i] = fmt.Errorf("close %s: %w", r.Name(), err)
			}
		}()
	}

	wg.Wait()

	return errors.Join(errs...)
}
