package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nvtrung/certprobe-cli/internal/probe"
)

// Job tracks one asynchronous batch probe. Results are attached once the
// batch completes; Error is set only for internal failures, never for
// individual host conditions (those live in Results).
type Job struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Status     string         `json:"status"`
	Hosts      []string       `json:"hosts"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Results    []probe.Result `json:"results,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// JobRequest is the payload for starting an asynchronous batch probe.
type JobRequest struct {
	Type  string   `json:"type"`
	Hosts HostList `json:"hosts"`
}

// JobManager keeps recent jobs in memory and fans job updates out to
// stream subscribers.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	subscribers map[chan Job]struct{}
	maxJobs     int
}

func NewJobManager() *JobManager {
	m := &JobManager{
		jobs:        make(map[string]*Job),
		subscribers: make(map[chan Job]struct{}),
		maxJobs:     1000,
	}
	go m.cleanupLoop()
	return m
}

func (m *JobManager) CreateJob(jobType string, hosts []string) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := &Job{
		ID:     generateID("job"),
		Type:   jobType,
		Status: "pending",
		Hosts:  append([]string(nil), hosts...),
	}
	m.jobs[job.ID] = job
	m.broadcast(*job)
	return job
}

func (m *JobManager) UpdateJob(id string, update func(*Job)) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	update(job)
	m.broadcast(*job)
	return job
}

func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if job, ok := m.jobs[id]; ok {
		copy := *job
		return &copy
	}
	return nil
}

// ListJobs returns up to limit jobs, newest first.
func (m *JobManager) ListJobs(limit int) []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].StartedAt == nil && jobs[j].StartedAt == nil {
			return jobs[i].ID > jobs[j].ID
		}
		if jobs[i].StartedAt == nil {
			return false
		}
		if jobs[j].StartedAt == nil {
			return true
		}
		return jobs[i].StartedAt.After(*jobs[j].StartedAt)
	})

	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs
}

// Subscribe registers a stream consumer. The returned func unsubscribes
// and closes the channel; it is safe to call more than once.
func (m *JobManager) Subscribe() (chan Job, func()) {
	ch := make(chan Job, 10)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
}

// broadcast must be called with m.mu held.
func (m *JobManager) broadcast(job Job) {
	for ch := range m.subscribers {
		select {
		case ch <- job:
		default:
			// Slow consumer; drop the update rather than block the batch.
		}
	}
}

func generateID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

// cleanupLoop evicts the oldest finished jobs once the retention cap is
// exceeded.
func (m *JobManager) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		if len(m.jobs) <= m.maxJobs {
			m.mu.Unlock()
			continue
		}

		type finishedJob struct {
			id   string
			time time.Time
		}
		var finished []finishedJob
		for id, job := range m.jobs {
			if job.Status == "done" || job.Status == "error" {
				finishTime := time.Now()
				if job.FinishedAt != nil {
					finishTime = *job.FinishedAt
				}
				finished = append(finished, finishedJob{id: id, time: finishTime})
			}
		}
		sort.Slice(finished, func(i, j int) bool {
			return finished[i].time.Before(finished[j].time)
		})

		toRemove := len(m.jobs) - m.maxJobs
		if toRemove > len(finished) {
			toRemove = len(finished)
		}
		for i := 0; i < toRemove; i++ {
			delete(m.jobs, finished[i].id)
		}
		m.mu.Unlock()
	}
}

// SetMaxJobs configures the in-memory job retention cap.
func (m *JobManager) SetMaxJobs(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > 0 {
		m.maxJobs = max
	}
}
