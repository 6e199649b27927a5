package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NBMedia786/chabot/internal/errs"
	"github.com/NBMedia786/chabot/internal/logging"
	"github.com/NBMedia786/chabot/internal/metrics"
)

var (
	// ErrPoolFull is returned by Schedule when max pending jobs are waiting.
	ErrPoolFull = errors.New("notify: too many pending notifications")
	// ErrPoolClosed is returned by Schedule after Close.
	ErrPoolClosed = errors.New("notify: pool closed")
)

const (
	defaultWorkers     = 4
	defaultMaxPending  = 1024
	defaultSendTimeout = 60 * time.Second
)

// Stats is a point-in-time view of the pool's counters.
type Stats struct {
	Pending int64
	Sent    int64
	Failed  int64
	Dropped int64
}

// PoolOpts holds parameters for creating a Pool.
type PoolOpts struct {
	Sender      Sender
	Workers     int
	MaxPending  int
	SendTimeout time.Duration
	Metrics     *metrics.Metrics
}

type job struct {
	id     uint64
	msg    Message
	logger *slog.Logger
}

// Pool delivers blueprint notifications after a delay. A timer per job moves
// it onto the queue when the delay elapses; a fixed set of workers sends.
// Jobs live only as long as the process.
type Pool struct {
	sender      Sender
	sendTimeout time.Duration
	metrics     *metrics.Metrics
	maxPending  int64

	// after schedules f to run once d has elapsed. It returns a stop func
	// that reports whether f was prevented from running.
	after func(d time.Duration, f func()) func() bool

	queue chan job
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
	nextID uint64
	timers map[uint64]func() bool

	pending atomic.Int64
	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NewPool creates a Pool and starts its workers.
func NewPool(opts PoolOpts) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = defaultMaxPending
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.Sender == nil {
		opts.Sender = Chain(nil)
	}

	p := &Pool{
		sender:      opts.Sender,
		sendTimeout: opts.SendTimeout,
		metrics:     opts.Metrics,
		maxPending:  int64(opts.MaxPending),
		after:       afterFunc,
		queue:       make(chan job, opts.MaxPending),
		done:        make(chan struct{}),
		timers:      make(map[uint64]func() bool),
	}
	for i := 0; i < opts.Workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	return p
}

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Schedule queues a blueprint notification for recipient after delay and
// returns immediately. ctx only supplies the logger; cancelling it does not
// withdraw the job.
func (p *Pool) Schedule(ctx context.Context, recipient, link string, delay time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if p.pending.Load() >= p.maxPending {
		p.dropped.Add(1)
		p.metrics.Notification("dropped")
		return ErrPoolFull
	}

	p.nextID++
	j := job{
		id:     p.nextID,
		msg:    BlueprintMessage(recipient, link),
		logger: logging.From(ctx),
	}
	p.pending.Add(1)
	p.metrics.PendingAdd(1)
	p.timers[j.id] = p.after(delay, func() { p.release(j) })
	return nil
}

// release moves a job whose delay has elapsed onto the work queue.
func (p *Pool) release(j job) {
	p.mu.Lock()
	delete(p.timers, j.id)
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	// The queue holds maxPending jobs and pending never exceeds that, so
	// this send only waits if Close races with it.
	select {
	case p.queue <- j:
	case <-p.done:
	}
}

func (p *Pool) work() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case j := <-p.queue:
			p.send(j)
		}
	}
}

func (p *Pool) send(j job) {
	p.pending.Add(-1)
	p.metrics.PendingAdd(-1)

	ctx, cancel := context.WithTimeout(logging.With(context.Background(), j.logger), p.sendTimeout)
	defer cancel()

	if err := p.sender.Send(ctx, j.msg); err != nil {
		p.failed.Add(1)
		p.metrics.Notification("failed")
		j.logger.Error("blueprint notification failed", "to", j.msg.To,
			"error", &errs.NotificationError{Op: "send blueprint", Err: err})
		return
	}
	p.sent.Add(1)
	p.metrics.Notification("sent")
	j.logger.Info("blueprint notification sent", "to", j.msg.To)
}

// Stats returns the pool's current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Pending: p.pending.Load(),
		Sent:    p.sent.Load(),
		Failed:  p.failed.Load(),
		Dropped: p.dropped.Load(),
	}
}

// Close stops the workers and waits for in-progress sends. Jobs still
// waiting for their delay or a worker are dropped.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for id, stop := range p.timers {
		stop()
		delete(p.timers, id)
	}
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()

	left := p.pending.Swap(0)
	if left > 0 {
		p.dropped.Add(left)
		p.metrics.PendingAdd(-float64(left))
		logging.Default().Warn("dropped pending notifications on close", "count", left)
	}
}
