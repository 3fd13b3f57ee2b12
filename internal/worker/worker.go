package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/job"
	"github.com/Kar2410/FLOW-FIX/internal/metrics"
	"github.com/Kar2410/FLOW-FIX/internal/rag"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
)

type PoolConfig struct {
	MinWorkers  int64
	MaxWorkers  int64
	IdleTimeout time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MinWorkers:  config.MinWorkerCount,
		MaxWorkers:  config.MaxWorkerCount,
		IdleTimeout: config.IdleWorkerTimeout,
	}
}

// Pool runs queued jobs. It starts with MinWorkers, grows on dispatcher
// signals up to MaxWorkers and retires idle workers back down to MinWorkers.
type Pool struct {
	jobService  *job.Service
	ragService  rag.Service
	cfg         PoolConfig
	stop        chan struct{}
	mu          sync.Mutex // guards stopped and wg.Add against Stop
	stopped     bool
	wg          sync.WaitGroup
	workerCount atomic.Int64
	logger      *logger_i.Logger
}

func NewPool(jobService *job.Service, ragService rag.Service, cfg PoolConfig) *Pool {
	cfg.MinWorkers = max(cfg.MinWorkers, 1)
	cfg.MaxWorkers = max(cfg.MaxWorkers, cfg.MinWorkers)
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = config.IdleWorkerTimeout
	}
	return &Pool{
		jobService: jobService,
		ragService: ragService,
		cfg:        cfg,
		stop:       make(chan struct{}),
		logger:     logger_i.NewLogger("worker_pool"),
	}
}

func (p *Pool) Start() {
	p.logger.Info("Initializing worker pool", "min", p.cfg.MinWorkers, "max", p.cfg.MaxWorkers)
	for range p.cfg.MinWorkers {
		p.tryCreateWorker()
	}
	go p.dispatcher()
}

// Stop signals every worker and waits for in-flight jobs until ctx expires.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.stop)
	}
	p.mu.Unlock()

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
		p.logger.Warn("Worker pool did not drain before shutdown deadline")
		return ctx.Err()
	}
}

func (p *Pool) WorkerCount() int64 {
	return p.workerCount.Load()
}

func (p *Pool) dispatcher() {
	p.logger.Info("Dispatcher started")
	for {
		select {
		case <-p.jobService.DispatcherChannel:
			if p.workerCount.Load() < p.cfg.MaxWorkers {
				p.tryCreateWorker()
			}
		case <-p.stop:
			return
		}
	}
}

// tryCreateWorker starts a worker unless Stop has already run. It reports
// whether a worker was started.
func (p *Pool) tryCreateWorker() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}
	p.createWorker()
	return true
}

func (p *Pool) createWorker() {
	p.wg.Add(1)
	count := p.workerCount.Add(1)
	metrics.IncrementActiveWorkerCount()
	p.logger.Debug("Created new worker", "workerCount", count)
	go p.worker()
}

func (p *Pool) worker() {
	idle := time.NewTimer(p.cfg.IdleTimeout)
	defer idle.Stop()
	for {
		select {
		case currentJob := <-p.jobService.JobChannel:
			metrics.DecrementJobsInQueue()
			p.executeJob(currentJob)
			idle.Reset(p.cfg.IdleTimeout)

		case <-p.stop:
			p.workerCount.Add(-1)
			p.removeWorker("stop signal received")
			return

		case <-idle.C:
			if p.tryRetire() {
				p.removeWorker("idle worker timeout")
				return
			}
			idle.Reset(p.cfg.IdleTimeout)
		}
	}
}

// tryRetire claims one slot above MinWorkers.
func (p *Pool) tryRetire() bool {
	for {
		n := p.workerCount.Load()
		if n <= p.cfg.MinWorkers {
			return false
		}
		if p.workerCount.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// removeWorker runs after the worker's slot has been released.
func (p *Pool) removeWorker(reason string) {
	metrics.DecrementActiveWorkerCount()
	p.logger.Debug("Removed worker", "reason", reason, "workerCount", p.workerCount.Load())
	p.wg.Done()
}
