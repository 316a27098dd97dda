package pipeline

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBusy is returned by Submit when every worker is occupied and the
// admission queue is full.
var ErrBusy = errors.New("too many transcriptions in progress")

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("worker pool stopped")

// Job is a snapshot of one in-flight pipeline run.
type Job struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type task struct {
	job *Job
	fn  func(job *Job)
}

// Pool runs submitted work on a fixed number of workers and tracks the
// jobs that have not finished yet.
type Pool struct {
	jobs    map[string]*Job
	mu      sync.RWMutex
	queue   chan *task
	workers int
	stopped bool
	wg      sync.WaitGroup
}

// NewPool creates a pool with the given number of workers and room for
// queueSize waiting tasks.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	return &Pool{
		jobs:    make(map[string]*Job),
		queue:   make(chan *task, queueSize),
		workers: workers,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop refuses new work and waits for queued and running tasks to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for t := range p.queue {
		p.process(t)
	}
}

func (p *Pool) process(t *task) {
	defer p.remove(t.job.ID)
	t.fn(t.job)
}

// Submit queues fn for videoID without blocking. fn receives the job so it
// can publish state changes with SetState.
func (p *Pool) Submit(videoID string, fn func(job *Job)) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		State:     StateReceived,
		CreatedAt: now,
		UpdatedAt: now,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil, ErrStopped
	}

	select {
	case p.queue <- &task{job: job, fn: fn}:
		p.jobs[job.ID] = job
		jobCopy := *job
		return &jobCopy, nil
	default:
		return nil, ErrBusy
	}
}

// SetState records a state change for a running job.
func (p *Pool) SetState(id string, state State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if job, ok := p.jobs[id]; ok {
		job.State = state
		job.UpdatedAt = time.Now()
	}
}

func (p *Pool) remove(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.jobs, id)
}

// Jobs returns copies of the queued and running jobs, oldest first.
func (p *Pool) Jobs() []Job {
	p.mu.RLock()
	defer p.mu.RUnlock()

	jobs := make([]Job, 0, len(p.jobs))
	for _, job := range p.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}
