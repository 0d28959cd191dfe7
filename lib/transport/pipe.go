package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/go-i2p/go-envelope/lib/handle"
	"github.com/go-i2p/logger"
	"golang.org/x/time/rate"
)

// Compile-time check that endpoints can travel inside messages
var _ handle.Handle = (*Endpoint)(nil)

type pipe struct {
	mu          sync.Mutex
	queues      [2][]*Object
	closed      [2]bool
	broken      bool
	readable    [2]chan struct{}
	serializing bool
	limiter     *rate.Limiter
	dropped     int
	onBad       [2]func(reason string)
}

// Endpoint is one side of a message pipe.
type Endpoint struct {
	pipe *pipe
	side int
	name PortName
}

// NewPipe returns two connected endpoints that pass objects by reference.
func NewPipe() (*Endpoint, *Endpoint) {
	return newPipe(false)
}

// NewSerializingPipe returns two connected endpoints that serialize every
// message on write and deliver a private copy to the reader.
func NewSerializingPipe() (*Endpoint, *Endpoint) {
	return newPipe(true)
}

func newPipe(serializing bool) (*Endpoint, *Endpoint) {
	cfg := CurrentLimits()
	p := &pipe{
		serializing: serializing,
		limiter:     rate.NewLimiter(rate.Limit(cfg.BadMessageLogRate), cfg.BadMessageLogBurst),
	}
	p.readable[0] = make(chan struct{}, 1)
	p.readable[1] = make(chan struct{}, 1)
	a := &Endpoint{pipe: p, side: 0, name: newPortName()}
	b := &Endpoint{pipe: p, side: 1, name: newPortName()}
	log.WithFields(logger.Fields{
		"at":          "transport.NewPipe",
		"port_a":      a.name.String(),
		"port_b":      b.name.String(),
		"serializing": serializing,
	}).Debug("created message pipe")
	return a, b
}

// Name returns the endpoint's port name.
func (e *Endpoint) Name() PortName {
	return e.name
}

func (e *Endpoint) peer() int {
	return 1 - e.side
}

// SetBadMessageHandler registers fn to run when a message this endpoint
// wrote is reported bad by the reader.
func (e *Endpoint) SetBadMessageHandler(fn func(reason string)) {
	e.pipe.mu.Lock()
	defer e.pipe.mu.Unlock()
	e.pipe.onBad[e.side] = fn
}

// WriteMessage queues o for the peer. On success the caller no longer owns
// o. On failure o is untouched and still owned by the caller.
func (e *Endpoint) WriteMessage(o *Object) error {
	if o == nil || o.state == nil {
		return ErrInvalidArgument
	}
	p := e.pipe
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed[e.side] {
		return ErrInvalidArgument
	}
	if p.broken || p.closed[e.peer()] {
		return ErrPeerClosed
	}

	var delivered *Object
	if p.serializing {
		copied, err := copyAcrossBoundary(o)
		if err != nil {
			return err
		}
		delivered = copied
	} else {
		delivered = o.moveOut()
	}

	writer := e.side
	delivered.SetBadMessageHandler(func(reason string) {
		p.reportBadMessage(writer, reason)
	})
	p.queues[e.peer()] = append(p.queues[e.peer()], delivered)
	notify(p.readable[e.peer()])
	return nil
}

// copyAcrossBoundary serializes o and returns a fresh object with its own
// copy of the bytes and the handles moved over.
func copyAcrossBoundary(o *Object) (*Object, error) {
	if err := o.Serialize(); err != nil && !errors.Is(err, ErrFailedPrecondition) {
		return nil, err
	}
	s := o.state.(*serializedState)
	data := make([]byte, len(s.data))
	copy(data, s.data)
	var handles []handle.Handle
	if s.hasHandles {
		handles = s.handles
	}
	o.state = nil
	o.badMessage = nil
	return &Object{state: &serializedState{data: data, handles: handles, hasHandles: true}}, nil
}

// ReadMessage dequeues the next message without blocking. It returns
// ErrShouldWait when nothing is queued and ErrPeerClosed once the peer is
// gone and the queue is drained.
func (e *Endpoint) ReadMessage() (*Object, error) {
	p := e.pipe
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed[e.side] {
		return nil, ErrInvalidArgument
	}
	q := p.queues[e.side]
	if len(q) == 0 {
		if p.broken || p.closed[e.peer()] {
			return nil, ErrPeerClosed
		}
		return nil, ErrShouldWait
	}
	o := q[0]
	q[0] = nil
	p.queues[e.side] = q[1:]
	return o, nil
}

// Wait blocks until a message is queued, the peer closes, or ctx is done.
func (e *Endpoint) Wait(ctx context.Context) error {
	p := e.pipe
	for {
		p.mu.Lock()
		switch {
		case p.closed[e.side]:
			p.mu.Unlock()
			return ErrInvalidArgument
		case len(p.queues[e.side]) > 0:
			p.mu.Unlock()
			return nil
		case p.broken || p.closed[e.peer()]:
			p.mu.Unlock()
			return ErrPeerClosed
		}
		ch := p.readable[e.side]
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Close closes this endpoint and every message still queued for it.
func (e *Endpoint) Close() error {
	p := e.pipe
	p.mu.Lock()
	if p.closed[e.side] {
		p.mu.Unlock()
		return ErrInvalidArgument
	}
	p.closed[e.side] = true
	pending := p.queues[e.side]
	p.queues[e.side] = nil
	notify(p.readable[e.peer()])
	p.mu.Unlock()

	var firstErr error
	for _, o := range pending {
		if err := o.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	log.WithFields(logger.Fields{
		"at":      "(Endpoint) Close",
		"port":    e.name.String(),
		"dropped": len(pending),
	}).Debug("closed pipe endpoint")
	return firstErr
}

// reportBadMessage breaks the pipe whose writer sent a malformed message.
func (p *pipe) reportBadMessage(writer int, reason string) {
	p.mu.Lock()
	alreadyBroken := p.broken
	p.broken = true
	onBad := p.onBad[writer]
	allowed := p.limiter.Allow()
	if !allowed {
		p.dropped++
	}
	dropped := p.dropped
	notify(p.readable[0])
	notify(p.readable[1])
	p.mu.Unlock()

	if allowed {
		log.WithFields(logger.Fields{
			"at":             "transport.reportBadMessage",
			"reason":         reason,
			"already_broken": alreadyBroken,
			"suppressed":     dropped,
		}).Warn("bad message received, closing pipe")
	}
	if onBad != nil {
		onBad(reason)
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
