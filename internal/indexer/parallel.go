package indexer

import (
	"context"
	"sync"
	"sync/atomic"

	"corpus-manager/internal/logging"
	"corpus-manager/internal/workers"
)

// maxHashWorkers caps the pool; hashing is mostly disk-bound and extra
// workers only add seek contention on network mounts.
const maxHashWorkers = 16

// hashJob is a file queued for fingerprinting
type hashJob struct {
	path    string
	absPath string
}

// hashResult is the outcome for one file
type hashResult struct {
	path   string
	digest string
	err    error
}

// HashPool fingerprints files on a bounded set of workers.
type HashPool struct {
	hasher     Fingerprinter
	numWorkers int

	// hashed counts successful fingerprints over the pool's lifetime
	hashed atomic.Int64
}

// NewHashPool returns a pool of numWorkers workers; 0 sizes it from GOMAXPROCS.
func NewHashPool(hasher Fingerprinter, numWorkers int) *HashPool {
	return &HashPool{
		hasher:     hasher,
		numWorkers: workers.Resolve(numWorkers, 1.5, maxHashWorkers),
	}
}

// Workers returns the pool size.
func (p *HashPool) Workers() int {
	return p.numWorkers
}

// HashAll fingerprints every candidate and returns the results keyed by
// path. Completion order is not observable to the caller.
func (p *HashPool) HashAll(ctx context.Context, candidates []Candidate) map[string]hashResult {
	results := make(map[string]hashResult, len(candidates))
	if len(candidates) == 0 {
		return results
	}

	numWorkers := min(p.numWorkers, len(candidates))
	jobs := make(chan hashJob, len(candidates))
	out := make(chan hashResult, len(candidates))

	var wg sync.WaitGroup
	for i := range numWorkers {
		wg.Add(1)
		go p.worker(ctx, i, jobs, out, &wg)
	}

	for _, c := range candidates {
		jobs <- hashJob{path: c.Path, absPath: c.AbsPath}
	}
	close(jobs)

	wg.Wait()
	close(out)

	for r := range out {
		results[r.path] = r
	}
	return results
}

func (p *HashPool) worker(ctx context.Context, id int, jobs <-chan hashJob, out chan<- hashResult, wg *sync.WaitGroup) {
	defer wg.Done()

	logging.Debug("Hash worker %d started", id)

	for job := range jobs {
		if err := ctx.Err(); err != nil {
			out <- hashResult{path: job.path, err: err}
			continue
		}

		digest, err := p.hasher.Fingerprint(job.absPath)
		if err == nil {
			p.hashed.Add(1)
		}
		out <- hashResult{path: job.path, digest: digest, err: err}
	}

	logging.Debug("Hash worker %d finished", id)
}

// Hashed returns the number of files fingerprinted so far.
func (p *HashPool) Hashed() int64 {
	return p.hashed.Load()
}
