// Package dispatcher routes recorded simulation events to their handlers.
// A handler runs inline on the caller's goroutine unless it is registered
// Buffered, in which case it gets a queue and a worker of its own.
package dispatcher

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("dispatcher closed")

// Event is one recorded occurrence from the simulation.
type Event struct {
	Command   string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger is satisfied by logging.KVLogger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// queued is what a buffered handler returns to the dispatching side.
const queued = "queued"

type routeOptions struct {
	queueLen int
	block    bool
	logged   bool
}

// Option configures handler registration.
type Option func(*routeOptions)

// Buffered decouples the handler from Dispatch through a queue of n events.
func Buffered(n int) Option { return func(o *routeOptions) { o.queueLen = n } }

// Blocking makes Dispatch wait for room in a full queue. Without it the
// event is dropped and Dispatch reports the overflow.
func Blocking() Option { return func(o *routeOptions) { o.block = true } }

// Logged logs each event at debug level and failures at error level.
func Logged() Option { return func(o *routeOptions) { o.logged = true } }

type route struct {
	handle HandlerFunc
	queue  chan Event // nil for inline handlers
}

// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	log  Logger
	inst instruments

	mu     sync.RWMutex
	routes map[string]route
	queues []chan Event
	closed bool
	wg     sync.WaitGroup
}

// New builds a dispatcher recording its metrics on m, or on the global
// meter provider when m is nil.
func New(logger Logger, m metric.Meter) (*Dispatcher, error) {
	d := &Dispatcher{log: logger, routes: map[string]route{}}
	inst, err := newInstruments(m, d.QueueLengths)
	if err != nil {
		return nil, err
	}
	d.inst = inst
	return d, nil
}

// Register installs h for command, replacing any earlier handler.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var o routeOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := route{handle: h}
	if o.queueLen > 0 {
		r.queue = make(chan Event, o.queueLen)
		d.wg.Add(1)
		go d.drain(command, r.queue, h)
		r.handle = d.enqueue(command, r.queue, o.block)
	}
	if o.logged {
		r.handle = d.logged(command, r.handle)
	}

	d.mu.Lock()
	d.routes[command] = r
	if r.queue != nil {
		d.queues = append(d.queues, r.queue)
	}
	d.mu.Unlock()
}

// Dispatch hands e to the handler of e.Command, stamping the wall time when
// the emitter left it empty. The read lock is held while the handler runs so
// Close cannot close a queue under a pending send.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.routes[e.Command]
	switch {
	case d.closed:
		return nil, ErrClosed
	case !ok:
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return r.handle(e)
}

func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[command]
	return ok
}

// QueueLengths reports the pending events of every buffered command.
func (d *Dispatcher) QueueLengths() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := map[string]int{}
	for cmd, r := range d.routes {
		if r.queue != nil {
			out[cmd] = len(r.queue)
		}
	}
	return out
}

// Close rejects further events and returns once every queue is drained.
// Calling it again is a no-op.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, q := range d.queues {
			close(q)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) drain(command string, queue <-chan Event, h HandlerFunc) {
	defer d.wg.Done()
	for e := range queue {
		_, err := h(e)
		d.inst.handled(command, err)
	}
}

func (d *Dispatcher) enqueue(command string, queue chan<- Event, block bool) HandlerFunc {
	if block {
		return func(e Event) (any, error) {
			queue <- e
			return queued, nil
		}
	}
	return func(e Event) (any, error) {
		select {
		case queue <- e:
			return queued, nil
		default:
			d.inst.drop(command)
			return nil, fmt.Errorf("queue full: %s", command)
		}
	}
}

func (d *Dispatcher) logged(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		began := time.Now()
		d.log.Debug("handling event", "command", command, "payload", fmt.Sprintf("%T", e.Payload))
		res, err := h(e)
		if err != nil {
			d.log.Error("event failed", "command", command, "duration", time.Since(began), "error", err)
			return res, err
		}
		d.log.Debug("event complete", "command", command, "duration", time.Since(began))
		return res, nil
	}
}
