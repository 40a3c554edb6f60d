package servicerunner

import (
	"context"
	"errors"
	"sync"
)

// Service is a blocking function that runs until the context is canceled
type Service func(ctx context.Context) error

// ServiceRunner runs multiple blocking services in background goroutines
type ServiceRunner struct {
	services []Service
}

// NewServiceRunner creates a new ServiceRunner with the given services
func NewServiceRunner(services ...Service) *ServiceRunner {
	return &ServiceRunner{
		services: services,
	}
}

// Run starts all services and blocks until they all return
// When one service returns an error, the context passed to all other services
// is canceled; all errors are joined in the returned error
func (r *ServiceRunner) Run(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		lock sync.Mutex
		errs []error
	)

	wg.Add(len(r.services))
	for _, svc := range r.services {
		go func(svc Service) {
			defer wg.Done()

			err := svc(ctx)
			if err != nil {
				lock.Lock()
				errs = append(errs, err)
				lock.Unlock()

				// Stop all other services
				cancel()
			}
		}(svc)
	}

	wg.Wait()
	return errors.Join(errs...)
}
