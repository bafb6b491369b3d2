package cron

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Job names the scheduled MagiSurprise jobs. The name is the metrics label
// and the log field, so it must stay stable.
const (
	JobCatalogRefresh  = "catalog-refresh"
	JobOutboxRetention = "outbox-retention"
)

// Job is a unit of scheduled work run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Cadence says how often a job runs relative to the worker's tick.
type Cadence struct {
	// Every is the minimum gap between successful runs. Zero runs the job
	// on every tick.
	Every time.Duration
}

var defaultCadences = map[string]Cadence{
	// Staleness is checked per collection inside the job.
	JobCatalogRefresh:  {},
	JobOutboxRetention: {Every: 24 * time.Hour},
}

type scheduled struct {
	job     Job
	cadence Cadence
	lastOK  time.Time
}

// Registry is the set of jobs the worker owns, with when each last succeeded.
// A failed run leaves lastOK alone so the job is retried on the next tick.
type Registry struct {
	jobs  []*scheduled
	byKey map[string]*scheduled
}

// NewRegistry registers jobs with their default cadence. Unknown job names
// run on every tick.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{byKey: map[string]*scheduled{}}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if err := r.Register(job, defaultCadences[job.Name()]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds job with an explicit cadence. Names must be unique.
func (r *Registry) Register(job Job, cadence Cadence) error {
	if job == nil {
		return fmt.Errorf("job required")
	}
	name := job.Name()
	if name == "" {
		return fmt.Errorf("job name required")
	}
	if _, ok := r.byKey[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}
	if cadence.Every < 0 {
		return fmt.Errorf("job %q: negative cadence", name)
	}
	entry := &scheduled{job: job, cadence: cadence}
	r.jobs = append(r.jobs, entry)
	r.byKey[name] = entry
	return nil
}

// Due returns the jobs whose cadence has elapsed at now, in registration order.
func (r *Registry) Due(now time.Time) []Job {
	out := make([]Job, 0, len(r.jobs))
	for _, entry := range r.jobs {
		if entry.lastOK.IsZero() || now.Sub(entry.lastOK) >= entry.cadence.Every {
			out = append(out, entry.job)
		}
	}
	return out
}

// Succeeded records a successful run of name at now.
func (r *Registry) Succeeded(name string, now time.Time) {
	if entry, ok := r.byKey[name]; ok {
		entry.lastOK = now
	}
}

// Names lists the registered job names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, entry := range r.jobs {
		names = append(names, entry.job.Name())
	}
	sort.Strings(names)
	return names
}
