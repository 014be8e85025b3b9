package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/formlens/internal/session"
)

// ErrQueueFull is returned when no more uploads can be accepted.
var ErrQueueFull = errors.New("upload queue is full")

// ErrStopped is returned for uploads submitted after Stop.
var ErrStopped = errors.New("pipeline is shutting down")

// Options sizes the orchestrator.
type Options struct {
	WorkerCount  int
	MaxQueueSize int
	// JobTimeout bounds one analysis; zero means no limit.
	JobTimeout      time.Duration
	CleanupInterval time.Duration
}

// Orchestrator runs uploads through the Processor on a bounded pool of
// workers and commits each result to its session.
type Orchestrator struct {
	processor *Processor
	sessions  *session.Store
	queue     chan *Job
	log       *slog.Logger
	opts      Options

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards stopped and the close of queue against Submit.
	mu      sync.Mutex
	stopped bool
}

func NewOrchestrator(processor *Processor, sessions *session.Store, opts Options, log *slog.Logger) *Orchestrator {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.MaxQueueSize <= 0 {
		opts.MaxQueueSize = 1
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 5 * time.Minute
	}
	return &Orchestrator{
		processor: processor,
		sessions:  sessions,
		queue:     make(chan *Job, opts.MaxQueueSize),
		log:       log,
		opts:      opts,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.opts.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.process(workerCtx, job)
				}
			}
		}()
	}

	// Start session store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.opts.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if n := o.sessions.Cleanup(); n > 0 {
					o.log.Info("expired sessions removed", "count", n)
				}
			}
		}
	}()
}

func (o *Orchestrator) process(ctx context.Context, job *Job) {
	log := o.log.With("session_id", job.Session.ID, "filename", job.Filename, "content_hash", job.ContentHash[:12])

	if o.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.JobTimeout)
		defer cancel()
	}

	doc, err := o.processor.Analyze(ctx, job.Data)
	if err != nil {
		log.Error("analysis failed", "error", err, "wait_ms", time.Since(job.QueuedAt).Milliseconds())
		job.Session.Fail(err)
		return
	}
	job.Session.Commit(*doc)
	log.Info("document loaded", "fields", len(doc.Fields), "pages", len(doc.Pages))
}

// Stop gracefully shuts down the pipeline. Jobs still queued are failed
// so their sessions are not left loading. Stop may be called more than once.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()

	dropped := 0
	for job := range o.queue {
		job.Session.Fail(ErrStopped)
		dropped++
	}
	if dropped > 0 {
		o.log.Warn("queued uploads dropped at shutdown", "count", dropped)
	}
}

// Submit marks the job's session as loading and queues the job. The
// session is released again when the queue is full.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return ErrStopped
	}
	if err := job.Session.BeginLoad(job.Filename); err != nil {
		return err
	}
	select {
	case o.queue <- job:
		return nil
	default:
		err := fmt.Errorf("%w (%d)", ErrQueueFull, o.opts.MaxQueueSize)
		job.Session.Fail(err)
		return err
	}
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Processor returns the processor used by the workers.
func (o *Orchestrator) Processor() *Processor {
	return o.processor
}
