package notify

import (
	"context"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/queue"

	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

const (
	// DefaultSendTimeout bounds one delivery attempt by the dispatcher.
	DefaultSendTimeout = 30 * time.Second

	queueBuffer = 20
)

// ErrDispatcherStopped is returned by Send after Stop.
var ErrDispatcherStopped = &custodyerr.CustodyError{
	Code:     "DISPATCHER_STOPPED",
	Message:  "notification dispatcher is stopped",
	ExitCode: custodyerr.ExitGeneral,
}

type message struct {
	to   string
	text string
}

// Dispatcher queues messages and delivers them on its own goroutine, so
// callers never wait on the underlying channel. Delivery failures are
// logged and dropped.
type Dispatcher struct {
	channel Channel
	logger  LogWriter
	timeout time.Duration
	queue   *queue.ConcurrentQueue

	startOnce sync.Once
	stopOnce  sync.Once
	quit      chan struct{}
	wg        sync.WaitGroup
}

// Compile-time interface check
var _ Channel = (*Dispatcher)(nil)

// NewDispatcher wraps ch. A nil logger discards output.
func NewDispatcher(ch Channel, logger LogWriter) *Dispatcher {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Dispatcher{
		channel: ch,
		logger:  logger,
		timeout: DefaultSendTimeout,
		queue:   queue.NewConcurrentQueue(queueBuffer),
		quit:    make(chan struct{}),
	}
}

// Start begins delivery.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		d.queue.Start()
		d.wg.Add(1)
		go d.deliver()
	})
}

// Stop halts delivery. Messages still queued are dropped.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.quit)
		d.wg.Wait()
		d.queue.Stop()
	})
}

// Send enqueues a message and returns without waiting for delivery.
func (d *Dispatcher) Send(ctx context.Context, to, text string) error {
	select {
	case d.queue.ChanIn() <- message{to: to, text: text}:
		return nil
	case <-ctx.Done():
		return custodyerr.WithCause(custodyerr.ErrNotification, ctx.Err())
	case <-d.quit:
		return ErrDispatcherStopped
	}
}

func (d *Dispatcher) deliver() {
	defer d.wg.Done()

	for {
		select {
		case item, ok := <-d.queue.ChanOut():
			if !ok {
				return
			}
			m, _ := item.(message)

			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			err := d.channel.Send(ctx, m.to, m.text)
			cancel()

			if err != nil {
				d.logger.Error("notification delivery failed: %v", err)
			} else {
				d.logger.Debug("notification delivered")
			}

		case <-d.quit:
			return
		}
	}
}
