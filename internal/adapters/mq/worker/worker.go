// Package worker runs the stats refresh workers. Each listing event names a
// skill; a worker recomputes that skill's catalog stats from the member
// store and writes them back.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/skillswap/internal/adapters/mq/queue"
	"github.com/okian/skillswap/internal/adapters/repository"
	"github.com/okian/skillswap/internal/domain/model"
	"github.com/okian/skillswap/internal/domain/query"
	"github.com/okian/skillswap/internal/domain/scoring"
	"github.com/okian/skillswap/pkg/logger"
	"github.com/okian/skillswap/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2
	metricsUpdateInterval   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Refresh outcomes reported to metrics.
const (
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// Event is what workers read off the queue.
type Event = queue.Event

// MemberReader lists the members whose listings may mention a skill.
type MemberReader interface {
	FindActiveMembers(ctx context.Context, f query.MemberFilter) ([]model.Member, error)
}

// StatsWriter persists recomputed stats for a catalog skill.
type StatsWriter interface {
	UpdateSkillStats(ctx context.Context, name string, stats model.SkillStats, popularity float64) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events until its queue closes or it is stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	members MemberReader
	scorer  scoring.Scorer
	writer  StatsWriter
	name    string

	processed *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, members MemberReader, scorer scoring.Scorer, writer StatsWriter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		members:   members,
		scorer:    scorer,
		writer:    writer,
		name:      "worker",
		processed: new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if _, err := w.Process(ctx, e); err != nil {
				w.logger.Error(ctx, "stats refresh failed",
					logger.String("eventID", e.EventID),
					logger.String("skill", e.SkillName),
					logger.Error(err),
				)
			}
		}
	}
}

// Stop signals the worker to exit without waiting.
func (w *InMemoryWorker) Stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown stops the worker and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.Stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Process refreshes the stats of the skill named by e and returns the
// outcome. A name with no catalog entry is skipped.
func (w *InMemoryWorker) Process(ctx context.Context, e Event) (string, error) {
	start := time.Now()
	outcome := OutcomeError
	defer func() {
		ms := float64(time.Since(start).Microseconds()) / 1000
		metrics.RecordWorkerProcessingLatency(ms)
		metrics.RecordStatsRefresh(outcome, ms)
	}()

	members, err := w.members.FindActiveMembers(ctx, query.MemberFilter{Term: e.SkillName})
	if err != nil {
		w.fail("member_read")
		return outcome, fmt.Errorf("read members for %q: %w", e.SkillName, err)
	}

	res, err := w.scorer.Score(ctx, scoring.Input{SkillName: e.SkillName, Members: members})
	if err != nil {
		w.fail("scoring")
		return outcome, fmt.Errorf("score %q: %w", e.SkillName, err)
	}

	err = w.writer.UpdateSkillStats(ctx, e.SkillName, res.Stats, res.Popularity)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		outcome = OutcomeSkipped
		w.logger.Debug(ctx, "listing names no catalog skill", logger.String("skill", e.SkillName))
	case err != nil:
		w.fail("stats_write")
		return outcome, fmt.Errorf("write stats for %q: %w", e.SkillName, err)
	default:
		outcome = OutcomeUpdated
	}

	w.processed.Add(1)
	return outcome, nil
}

func (w *InMemoryWorker) fail(kind string) {
	metrics.RecordWorkerError()
	metrics.RecordErrorByComponent("worker", kind)
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdown     chan struct{}
	shutdownOnce sync.Once
	updaterDone  chan struct{}

	processed         atomic.Int64
	lastCount         int64
	lastProcessedTime time.Time

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one uses a
// multiple of the CPU count.
func NewPool(workerCount int, q Queue, members MemberReader, scorer scoring.Scorer, writer StatsWriter) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             q,
		shutdown:          make(chan struct{}),
		updaterDone:       make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, members, scorer, writer,
			WithName("worker-"+strconv.Itoa(i)),
			withCounter(&p.processed),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerMessagesPerSecond(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of events processed since start.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.runMetricsUpdater(ctx)
}

func (p *Pool) runMetricsUpdater(ctx context.Context) {
	defer close(p.updaterDone)
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	now := time.Now()
	count := p.processed.Load()
	if secs := now.Sub(p.lastProcessedTime).Seconds(); secs > 0 {
		metrics.UpdateWorkerMessagesPerSecond(float64(count-p.lastCount) / secs)
	}
	p.lastCount = count
	p.lastProcessedTime = now
}

// Stop stops every worker without draining the queue.
func (p *Pool) Stop() {
	p.shutdownOnce.Do(func() { close(p.shutdown) })
	for _, w := range p.workers {
		w.Stop()
	}
	for _, w := range p.workers {
		<-w.Done()
	}
}

// Shutdown closes the queue and lets the workers drain it. Workers still
// running when ctx (capped at thirty seconds) expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	p.shutdownOnce.Do(func() { close(p.shutdown) })

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			w.Stop()
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
