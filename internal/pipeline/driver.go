package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"

	"github.com/suicapindexer/indexer/internal/chain"
)

// Source yields checkpoints in increasing sequence-number order; see
// internal/ingestion for the one concrete implementation.
type Source interface {
	Checkpoints(ctx context.Context, fromSeq uint64) (<-chan *chain.Checkpoint, <-chan error)
}

// Metrics is the subset of observability the driver emits into,
// satisfied by internal/metrics.Recorder. Kept as a narrow interface
// here so internal/pipeline never imports internal/metrics directly.
type Metrics interface {
	ObserveProcessed(handler string, rows int)
	ObserveCommit(handler string, err error, dur time.Duration)
	SetWatermark(handler string, seq uint64)
	SetQueueDepth(handler string, depth int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveProcessed(string, int)              {}
func (noopMetrics) ObserveCommit(string, error, time.Duration) {}
func (noopMetrics) SetWatermark(string, uint64)               {}
func (noopMetrics) SetQueueDepth(string, int)                 {}

// Config configures the sequential driver.
type Config struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	Store  Committer

	// FlushCheckpoints, FlushRows and FlushInterval are the three
	// configurable flush points; a flush fires when any one of them is
	// reached.
	FlushCheckpoints int
	FlushRows        int
	FlushInterval    time.Duration

	// MaxCommitRetries bounds the exponential backoff applied to a
	// failing commit before the handler's watermark is left stalled and
	// an error is logged.
	MaxCommitRetries uint

	Metrics Metrics
}

func (c Config) Validate() error {
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.FlushCheckpoints == 0 {
		c.FlushCheckpoints = 1
	}
	if c.FlushRows == 0 {
		c.FlushRows = 500
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = 5 * time.Second
	}
	if c.MaxCommitRetries == 0 {
		c.MaxCommitRetries = 5
	}
	if c.Metrics == nil {
		c.Metrics = noopMetrics{}
	}
	return c
}

// Driver is the sequential checkpoint processor: it fans out each
// checkpoint to every handler's own queue so that one handler stalling
// on repeated commit failures never blocks another's progress — no
// cross-handler ordering is promised — while each handler processes its
// own queue strictly in checkpoint order.
type Driver struct {
	cfg      Config
	handlers []Handler
}

func New(cfg Config, handlers ...Handler) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Driver{cfg: cfg.withDefaults(), handlers: handlers}, nil
}

// Run drives checkpoints from src through every handler until ctx is
// canceled or src reports a fatal error. Process errors are fatal to
// the whole pipeline — an operator must intervene; commit errors are
// retried and, if still failing after MaxCommitRetries, are logged and
// leave that handler's watermark stalled without affecting the others.
func (d *Driver) Run(ctx context.Context, src Source, fromSeq uint64) error {
	checkpoints, srcErrs := src.Checkpoints(ctx, fromSeq)

	queues := make([]*checkpointQueue, len(d.handlers))
	for i := range d.handlers {
		queues[i] = newCheckpointQueue()
	}

	var wg sync.WaitGroup
	handlerErrs := make(chan error, len(d.handlers))
	for i, h := range d.handlers {
		wg.Add(1)
		go func(h Handler, q *checkpointQueue) {
			defer wg.Done()
			if err := d.runHandler(ctx, h, q); err != nil {
				handlerErrs <- fmt.Errorf("handler %s: %w", h.Name(), err)
			}
		}(h, queues[i])
	}

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		for {
			select {
			case <-ctx.Done():
				return
			case ckpt, ok := <-checkpoints:
				if !ok {
					return
				}
				for i, q := range queues {
					q.push(ckpt)
					d.cfg.Metrics.SetQueueDepth(d.handlers[i].Name(), q.depth())
				}
			}
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-srcErrs:
		if err != nil {
			runErr = fmt.Errorf("checkpoint source: %w", err)
		}
	case err := <-handlerErrs:
		runErr = err
	case <-dispatchDone:
		// source channel closed cleanly; fall through to drain below
	}

	for _, q := range queues {
		q.close()
	}
	wg.Wait()

	// A handler or source error may still be queued when the checkpoint
	// channel closed first; report it rather than a clean stop.
	if runErr == nil {
		select {
		case err := <-handlerErrs:
			runErr = err
		case err := <-srcErrs:
			if err != nil {
				runErr = fmt.Errorf("checkpoint source: %w", err)
			}
		default:
		}
	}

	return runErr
}

// runHandler is one handler's private loop: pop checkpoints off its
// queue strictly in order, accumulate process() output, and flush
// (commit) at the configured flush points.
func (d *Driver) runHandler(ctx context.Context, h Handler, q *checkpointQueue) error {
	log := d.cfg.Logger.With("handler", h.Name())

	var pending []any
	pendingCheckpoints := 0
	lastFlush := d.cfg.Clock.Now()
	var watermark uint64
	watermarkSet := false

	flush := func() {
		if len(pending) == 0 {
			if watermarkSet {
				d.cfg.Metrics.SetWatermark(h.Name(), watermark)
			}
			pendingCheckpoints = 0
			lastFlush = d.cfg.Clock.Now()
			return
		}
		start := d.cfg.Clock.Now()
		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			return struct{}{}, h.Commit(ctx, d.cfg.Store, pending)
		}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(d.cfg.MaxCommitRetries))
		d.cfg.Metrics.ObserveCommit(h.Name(), err, d.cfg.Clock.Now().Sub(start))

		if err != nil {
			log.Error("commit failed after retries, watermark stalled", "error", err, "rows", len(pending))
			// Leave pending as-is: the batch is retried again on the
			// next flush trigger rather than dropped, preserving
			// idempotent-replay safety.
			return
		}

		if watermarkSet {
			log.Debug("committed batch", "rows", len(pending), "watermark", watermark)
		}
		d.cfg.Metrics.SetWatermark(h.Name(), watermark)
		pending = nil
		pendingCheckpoints = 0
		lastFlush = d.cfg.Clock.Now()
	}

	for {
		ckpt, ok := q.pop()
		if !ok {
			flush()
			return nil
		}

		batch, err := h.Process(ckpt)
		if err != nil {
			return fmt.Errorf("process checkpoint %d: %w", ckpt.Sequence, err)
		}
		d.cfg.Metrics.ObserveProcessed(h.Name(), len(batch))

		pending = append(pending, batch...)
		pendingCheckpoints++
		watermark = ckpt.Sequence
		watermarkSet = true

		if pendingCheckpoints >= d.cfg.FlushCheckpoints ||
			len(pending) >= d.cfg.FlushRows ||
			d.cfg.Clock.Now().Sub(lastFlush) >= d.cfg.FlushInterval {
			flush()
		}
	}
}
