package probe

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultConcurrency bounds simultaneous probes to avoid unbounded
	// socket fan-out on large batches.
	DefaultConcurrency = 20
	// DefaultBatchTimeout bounds total wall-clock time for one batch.
	DefaultBatchTimeout = 60 * time.Second
)

// Runner fans a batch of requests out to a bounded worker pool and fans
// the results back in. Configuration is read-only during a batch run;
// a Runner holds no other state and is safe for concurrent batches.
type Runner struct {
	Concurrency  int           // maximum concurrent probes
	RateLimit    int           // probes per second across the batch, 0 = unlimited
	BatchTimeout time.Duration // wall-clock bound for the whole batch
}

// ProbeAll probes every request and returns one Result per request, in
// input order regardless of completion order. Each result is written to
// its input index, never appended, so ordering cannot depend on
// scheduling. Probes that have not finished when the batch timeout
// elapses are abandoned and reported as timeout; completed siblings are
// unaffected.
//
// observe, when non-nil, is invoked once per completed probe from worker
// goroutines and must be safe for concurrent use.
func (r *Runner) ProbeAll(ctx context.Context, prober *Prober, reqs []Request, observe func(Result)) []Result {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	batchTimeout := r.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = DefaultBatchTimeout
	}
	var limiter *rate.Limiter
	if r.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.RateLimit), r.RateLimit)
	}

	batchCtx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, len(reqs))

	for i, req := range reqs {
		wg.Add(1)
		go func(idx int, req Request) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-batchCtx.Done():
				// Queued past the deadline; never started.
				results[idx] = finish(abandonedResult(req), observe)
				return
			}

			if limiter != nil {
				if err := limiter.Wait(batchCtx); err != nil {
					results[idx] = finish(abandonedResult(req), observe)
					return
				}
			}

			results[idx] = finish(prober.Probe(batchCtx, req), observe)
		}(i, req)
	}

	wg.Wait()
	return results
}

// finish reports a resolved probe, abandoned or not, so observers see
// exactly one callback per input.
func finish(result Result, observe func(Result)) Result {
	if observe != nil {
		observe(result)
	}
	return result
}

func abandonedResult(req Request) Result {
	return Result{
		Host:      req.Host,
		Status:    StatusTimeout,
		Error:     "batch timeout exceeded before probe completed",
		CheckedAt: time.Now().UTC(),
	}
}
