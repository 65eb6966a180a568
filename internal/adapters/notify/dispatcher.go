package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/ports"
)

var (
	ErrDispatcherClosed = errors.New("notification dispatcher closed")
	ErrQueueFull        = errors.New("notification queue full")
	ErrNoChannel        = errors.New("no sender configured for channel")
)

type DispatcherConfig struct {
	BufferSize  int
	Workers     int
	SendTimeout time.Duration
	// DropIfFull rejects instead of blocking when the buffer is full.
	DropIfFull bool
}

// Dispatcher delivers notifications on background workers. It satisfies
// ports.NotificationSender.
type Dispatcher struct {
	cfg      DispatcherConfig
	logger   *slog.Logger
	senders  map[ports.NotificationChannel]ports.NotificationSender
	onResult func(channel ports.NotificationChannel, outcome string)

	ch        chan ports.Notification
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(logger *slog.Logger, cfg DispatcherConfig, senders map[ports.NotificationChannel]ports.NotificationSender) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	d := &Dispatcher{
		cfg:     cfg,
		logger:  logger,
		senders: senders,
		ch:      make(chan ports.Notification, cfg.BufferSize),
		done:    make(chan struct{}),
	}
	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.run()
	}
	return d
}

// OnResult registers a hook called once per delivered or failed notification.
// It must be set before the first Send.
func (d *Dispatcher) OnResult(fn func(channel ports.NotificationChannel, outcome string)) {
	d.onResult = fn
}

// Send queues n for delivery. It only fails when n cannot be queued.
func (d *Dispatcher) Send(ctx context.Context, n ports.Notification) error {
	if d.closed.Load() {
		return ErrDispatcherClosed
	}
	if _, ok := d.senders[n.Channel]; !ok {
		return fmt.Errorf("%w: %s", ErrNoChannel, n.Channel)
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- n:
			return nil
		case <-d.done:
			return ErrDispatcherClosed
		default:
			d.dropped.Add(1)
			d.report(n.Channel, "dropped")
			return ErrQueueFull
		}
	}

	select {
	case d.ch <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrDispatcherClosed
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case n := <-d.ch:
			d.deliver(n)
		case <-d.done:
			for {
				select {
				case n := <-d.ch:
					d.deliver(n)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(n ports.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()

	err := d.senders[n.Channel].Send(ctx, n)
	if err != nil {
		d.logger.WarnContext(ctx, "notification delivery failed",
			"module", "notify.dispatcher",
			"layer", "adapter",
			"operation", "deliver",
			"outcome", "failure",
			"channel", n.Channel,
			"kind", n.Kind,
			"error", err,
		)
		d.report(n.Channel, "failure")
		return
	}
	d.logger.DebugContext(ctx, "notification delivered",
		"module", "notify.dispatcher",
		"layer", "adapter",
		"operation", "deliver",
		"outcome", "success",
		"channel", n.Channel,
		"kind", n.Kind,
	)
	d.report(n.Channel, "success")
}

func (d *Dispatcher) report(channel ports.NotificationChannel, outcome string) {
	if d.onResult != nil {
		d.onResult(channel, outcome)
	}
}

// Close stops accepting notifications and waits until the queue is drained.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many notifications were rejected because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}
