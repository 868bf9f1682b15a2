// Package pool runs enrichment jobs on a worker pool that grows under
// load and shrinks back to its floor when workers sit idle.
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is a unit of work executed on a worker
type Job func(ctx context.Context)

// WorkerState tracks a worker through its lifecycle
type WorkerState string

const (
	WorkerStateIdle       WorkerState = "idle"
	WorkerStateBusy       WorkerState = "busy"
	WorkerStateError      WorkerState = "error"
	WorkerStateTerminated WorkerState = "terminated"
)

// ErrStopped is returned when submitting to a stopped pool
var ErrStopped = errors.New("worker pool is stopped")

// Config bounds the pool
type Config struct {
	MinWorkers  int
	MaxWorkers  int
	IdleTimeout time.Duration // idle time before a worker above the floor is retired
}

// DefaultConfig sizes the pool from the machine, with a floor of two
// workers and a ceiling of four
func DefaultConfig() Config {
	max := runtime.NumCPU()
	if max > 4 {
		max = 4
	}
	if max < 2 {
		max = 2
	}
	return Config{
		MinWorkers:  2,
		MaxWorkers:  max,
		IdleTimeout: 30 * time.Second,
	}
}

// Stats is a point-in-time pool census
type Stats struct {
	ActiveWorkers int
	IdleWorkers   int
	TotalWorkers  int
	JobsCompleted int
}

type worker struct {
	id        string
	state     WorkerState
	jobs      chan Job
	completed int
	idleSince time.Time
}

// Pool is safe for concurrent use
type Pool struct {
	mu      sync.Mutex
	workers map[string]*worker
	spawned int
	cfg     Config
	logger  *logrus.Logger

	notify  chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool
}

// New creates a stopped pool; call Start to spawn the worker floor
func New(cfg Config, logger *logrus.Logger) *Pool {
	def := DefaultConfig()
	if cfg.MinWorkers <= 0 {
		cfg.MinWorkers = def.MinWorkers
	}
	if cfg.MaxWorkers < cfg.MinWorkers {
		cfg.MaxWorkers = cfg.MinWorkers
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		workers: make(map[string]*worker),
		cfg:     cfg,
		logger:  logger,
		notify:  make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start spawns the worker floor and the idle sweeper
func (p *Pool) Start() {
	p.mu.Lock()
	for i := 0; i < p.cfg.MinWorkers; i++ {
		p.spawnLocked()
	}
	p.mu.Unlock()

	p.wg.Add(1)
	go p.sweepIdle()

	p.logger.WithFields(logrus.Fields{
		"min": p.cfg.MinWorkers,
		"max": p.cfg.MaxWorkers,
	}).Info("Worker pool started")
}

// Available reports when a worker may have become free. The channel
// carries at most one pending signal.
func (p *Pool) Available() <-chan struct{} {
	return p.notify
}

// TrySubmit hands the job to an idle worker, growing the pool when
// every worker is busy and the ceiling has not been reached. It
// returns the chosen worker's id, or false when the pool is
// saturated.
func (p *Pool) TrySubmit(job Job) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return "", false, ErrStopped
	}

	// least-loaded idle worker first
	var chosen *worker
	for _, w := range p.workers {
		if w.state != WorkerStateIdle {
			continue
		}
		if chosen == nil || w.completed < chosen.completed {
			chosen = w
		}
	}

	if chosen == nil {
		if len(p.workers) >= p.cfg.MaxWorkers {
			return "", false, nil
		}
		chosen = p.spawnLocked()
		p.logger.WithFields(logrus.Fields{
			"worker_id": chosen.id,
			"workers":   len(p.workers),
		}).Debug("Scaled worker pool up")
	}

	chosen.state = WorkerStateBusy
	chosen.jobs <- job
	return chosen.id, true, nil
}

// Stats takes a census of the pool
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{TotalWorkers: len(p.workers)}
	for _, w := range p.workers {
		switch w.state {
		case WorkerStateBusy:
			stats.ActiveWorkers++
		case WorkerStateIdle:
			stats.IdleWorkers++
		}
		stats.JobsCompleted += w.completed
	}
	return stats
}

// Shutdown stops accepting jobs and waits for running workers to
// drain, up to the context deadline
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	for _, w := range p.workers {
		close(w.jobs)
	}
	p.mu.Unlock()

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info("Worker pool stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}

// spawnLocked creates and starts a worker. Caller holds the mutex.
func (p *Pool) spawnLocked() *worker {
	p.spawned++
	w := &worker{
		id:        fmt.Sprintf("worker-%d", p.spawned),
		state:     WorkerStateIdle,
		jobs:      make(chan Job, 1),
		idleSince: time.Now(),
	}
	p.workers[w.id] = w
	p.wg.Add(1)
	go p.run(w)
	return w
}

// run is a worker's main loop
func (p *Pool) run(w *worker) {
	defer p.wg.Done()
	for job := range w.jobs {
		if !p.runJob(w, job) {
			return
		}

		p.mu.Lock()
		w.completed++
		if w.state == WorkerStateBusy {
			w.state = WorkerStateIdle
			w.idleSince = time.Now()
		}
		p.mu.Unlock()

		select {
		case p.notify <- struct{}{}:
		default:
		}
	}
}

// runJob executes one job and reports whether the worker survived it. A
// panicking job puts the worker into the error sink state; the pool
// stops routing to it and spawns a replacement to hold the floor.
func (p *Pool) runJob(w *worker, job Job) (ok bool) {
	defer func() {
		r := recover()
		if r == nil {
			ok = true
			return
		}

		p.mu.Lock()
		w.state = WorkerStateError
		delete(p.workers, w.id)
		if !p.stopped && len(p.workers) < p.cfg.MinWorkers {
			p.spawnLocked()
		}
		p.mu.Unlock()

		p.logger.WithFields(logrus.Fields{
			"worker_id": w.id,
			"panic":     r,
		}).Error("Worker errored, replaced")

		select {
		case p.notify <- struct{}{}:
		default:
		}
	}()

	job(p.ctx)
	return true
}

// sweepIdle retires workers above the floor that have been idle past
// the timeout
func (p *Pool) sweepIdle() {
	defer p.wg.Done()

	interval := p.cfg.IdleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.retireIdle()
		}
	}
}

func (p *Pool) retireIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	cutoff := time.Now().Add(-p.cfg.IdleTimeout)
	for id, w := range p.workers {
		if len(p.workers) <= p.cfg.MinWorkers {
			break
		}
		if w.state != WorkerStateIdle || w.idleSince.After(cutoff) {
			continue
		}
		w.state = WorkerStateTerminated
		close(w.jobs)
		delete(p.workers, id)
		p.logger.WithFields(logrus.Fields{
			"worker_id": id,
			"workers":   len(p.workers),
		}).Debug("Scaled worker pool down")
	}
}
