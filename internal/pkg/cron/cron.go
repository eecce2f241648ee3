// Package cron runs named background jobs on fixed intervals.
package cron

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Job is a unit of scheduled work.
type Job struct {
	Name        string
	Description string
	Interval    time.Duration
	Run         func(ctx context.Context) error
}

type jobState struct {
	job Job

	mu      sync.Mutex
	running bool
	lastRun *time.Time
	lastErr error
	nextRun time.Time
}

// JobInfo is a point-in-time snapshot of one job, serializable for the
// admin API.
type JobInfo struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	NextRunAt   time.Time  `json:"next_run_at"`
	Error       string     `json:"error,omitempty"`
}

// Scheduler owns a set of jobs; register everything before calling Start.
type Scheduler struct {
	mu   sync.RWMutex
	jobs map[string]*jobState
}

func New() *Scheduler {
	return &Scheduler{jobs: make(map[string]*jobState)}
}

// Register adds a job. A job with a zero interval is rejected.
func (s *Scheduler) Register(job Job) error {
	if job.Interval <= 0 {
		return fmt.Errorf("job %q has no interval", job.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	s.jobs[job.Name] = &jobState{
		job:     job,
		nextRun: time.Now().Add(job.Interval),
	}
	return nil
}

// Start spawns one goroutine per job and blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.RLock()
	states := make([]*jobState, 0, len(s.jobs))
	for _, st := range s.jobs {
		states = append(states, st)
	}
	s.mu.RUnlock()

	var wg sync.WaitGroup
	for _, st := range states {
		wg.Add(1)
		go func(st *jobState) {
			defer wg.Done()
			ticker := time.NewTicker(st.job.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					st.fire(ctx)
				}
			}
		}(st)
	}
	wg.Wait()
}

func (st *jobState) fire(ctx context.Context) {
	st.mu.Lock()
	if st.running {
		st.mu.Unlock()
		return
	}
	st.running = true
	st.mu.Unlock()

	started := time.Now()
	err := st.job.Run(ctx)

	st.mu.Lock()
	st.running = false
	st.lastRun = &started
	st.lastErr = err
	st.nextRun = time.Now().Add(st.job.Interval)
	st.mu.Unlock()
}

// Trigger runs a job by name ahead of schedule, in the background.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.RLock()
	st, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	go st.fire(ctx)
	return nil
}

// Snapshot reports the current state of every registered job.
func (s *Scheduler) Snapshot() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, st := range s.jobs {
		st.mu.Lock()
		info := JobInfo{
			Name:        st.job.Name,
			Description: st.job.Description,
			Status:      "idle",
			LastRunAt:   st.lastRun,
			NextRunAt:   st.nextRun,
		}
		switch {
		case st.running:
			info.Status = "running"
		case st.lastErr != nil:
			info.Status = "failed"
			info.Error = st.lastErr.Error()
		case st.lastRun != nil:
			info.Status = "ok"
		}
		st.mu.Unlock()
		infos = append(infos, info)
	}
	return infos
}
