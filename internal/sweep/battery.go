package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/san-kum/armcheck/internal/config"
)

// RunBattery runs scenarios concurrently on at most workers goroutines.
// Every scenario builds its own model, so runs share nothing. results[i]
// is nil when scenario i failed; the failures are joined in the error.
func (r *Runner) RunBattery(ctx context.Context, scenarios []config.Scenario, workers int) ([]*Result, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]*Result, len(scenarios))
	errs := make([]error, len(scenarios))
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i := range scenarios {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := r.Run(ctx, scenarios[idx])
			if err != nil {
				errs[idx] = fmt.Errorf("scenario %s: %w", scenarios[idx].Name, err)
				return
			}
			results[idx] = res
		}(i)
	}

	wg.Wait()

	return results, errors.Join(errs...)
}

// Summary tallies a battery.
type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Aborted int
}

func Summarize(results []*Result) Summary {
	sum := Summary{Total: len(results)}
	for _, res := range results {
		switch {
		case res == nil:
			sum.Aborted++
		case res.Passed():
			sum.Passed++
		default:
			sum.Failed++
		}
	}
	return sum
}
