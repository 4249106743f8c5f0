package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/papercomputeco/docrag/pkg/logger"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is one file to ingest.
type Job struct {
	Collection string
	Path       string

	// Name defaults to the file's base name.
	Name    string
	DocType string
}

// DocumentUploader is satisfied by *Uploader.
type DocumentUploader interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
}

// PoolConfig is the configuration options for the worker pool.
type PoolConfig struct {
	Uploader DocumentUploader

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds a single upload. Zero means no timeout.
	JobTimeout time.Duration

	// OnDone, when set, is called after every job with its outcome.
	OnDone func(Job, *UploadResult, error)

	Logger *slog.Logger
}

// Pool ingests files asynchronously. Jobs are independent of each other.
type Pool struct {
	config *PoolConfig
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	// mu guards closed against Enqueue racing Close.
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a Pool and starts its worker goroutines.
func NewPool(c *PoolConfig) (*Pool, error) {
	if c.Uploader == nil {
		return nil, fmt.Errorf("pool requires an uploader")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: l,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is
// closed, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed",
			"collection", job.Collection,
			"path", job.Path,
		)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"collection", job.Collection,
			"path", job.Path,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"collection", job.Collection,
			"path", job.Path,
		)
		return false
	}
}

// Close signals workers to stop and waits for queued jobs to drain. Later
// calls are no-ops.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("ingest worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) {
	ctx := context.Background()
	if p.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.JobTimeout)
		defer cancel()
	}

	res, err := p.ingestFile(ctx, job)
	if err != nil {
		p.logger.Error("async ingestion failed",
			"collection", job.Collection,
			"path", job.Path,
			logger.Err(err),
		)
	}

	if p.config.OnDone != nil {
		p.config.OnDone(job, res, err)
	}
}

func (p *Pool) ingestFile(ctx context.Context, job Job) (*UploadResult, error) {
	data, err := os.ReadFile(job.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", job.Path, err)
	}

	name := job.Name
	if name == "" {
		name = filepath.Base(job.Path)
	}

	return p.config.Uploader.Upload(ctx, UploadRequest{
		Collection: job.Collection,
		Name:       name,
		DocType:    job.DocType,
		Data:       data,
	})
}
