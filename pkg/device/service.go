package device

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/homewire/homewire-go/pkg/cache"
	"github.com/homewire/homewire-go/pkg/codec"
	"github.com/homewire/homewire-go/pkg/log"
	"github.com/homewire/homewire-go/pkg/sequence"
)

// Service is a typed request/response operation on a Device.
type Service[In, Out any] struct {
	device  *Device
	name    string
	disc    []byte
	codec   codec.Codec[In, Out]
	timeout time.Duration
	ids     *sequence.Allocator
	cache   *cache.Keyed[Out]

	mu      sync.Mutex
	pending map[uint8]*pendingCall[Out]
}

// pendingCall settles exactly once.
type pendingCall[Out any] struct {
	id     uint8
	sentAt time.Time
	done   chan struct{}
	timer  *clock.Timer

	value    Out
	err      error
	settled  bool
	writeErr error
}

// AddService registers a service with the given discriminator on d.
func AddService[In, Out any](d *Device, name string, disc []byte, c codec.Codec[In, Out], opts ...ServiceOption) (*Service[In, Out], error) {
	if c == nil {
		return nil, fmt.Errorf("%w: service %s", ErrNilCodec, name)
	}

	o := serviceOptions{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}

	if err := d.register(name, disc, false); err != nil {
		return nil, err
	}

	s := &Service[In, Out]{
		device:  d,
		name:    name,
		disc:    append([]byte(nil), disc...),
		codec:   c,
		timeout: o.timeout,
		ids:     sequence.MustNew(0, 255, 0),
		pending: make(map[uint8]*pendingCall[Out]),
	}
	if o.cached {
		s.cache = cache.NewKeyed[Out](o.cacheSize, o.cooldown, d.clock)
	}
	d.addService(s)
	return s, nil
}

// Name returns the service name.
func (s *Service[In, Out]) Name() string { return s.name }

// Discriminator returns the service discriminator.
func (s *Service[In, Out]) Discriminator() []byte { return s.disc }

// Timeout returns the per-call round-trip budget.
func (s *Service[In, Out]) Timeout() time.Duration { return s.timeout }

// Cached reports whether calls go through a deduplicating cache.
func (s *Service[In, Out]) Cached() bool { return s.cache != nil }

// Pending returns the number of calls awaiting a response.
func (s *Service[In, Out]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Call sends in to the endpoint and waits for the decoded response.
// ctx bounds how long this caller waits.
func (s *Service[In, Out]) Call(ctx context.Context, in In) (Out, error) {
	payload, err := s.codec.Encode(in)
	if err != nil {
		var zero Out
		return zero, &CallError{Service: s.name, Err: ErrEncode, Cause: err}
	}

	if s.cache == nil {
		return s.send(ctx, payload)
	}

	var produced atomic.Bool
	out, err := s.cache.Do(ctx, string(payload), func(ctx context.Context) (Out, error) {
		produced.Store(true)
		return s.send(ctx, payload)
	})
	if err == nil && !produced.Load() {
		s.device.metrics.SharedResult(s.name)
	}
	return out, err
}

// Invalidate discards cached results so the next Call goes to the wire.
func (s *Service[In, Out]) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *Service[In, Out]) send(ctx context.Context, payload []byte) (Out, error) {
	pc, err := s.start(payload)
	if err != nil {
		var zero Out
		return zero, err
	}

	select {
	case <-pc.done:
		return pc.value, pc.err
	case <-ctx.Done():
		s.settle(pc, *new(Out), &CallError{Service: s.name, SeqID: pc.id, Err: ctx.Err()}, log.CallRejected)
		<-pc.done
		return pc.value, pc.err
	}
}

// start allocates an id, records the pending entry and writes the frame.
func (s *Service[In, Out]) start(payload []byte) (*pendingCall[Out], error) {
	id, err := s.device.reserve(s, s.ids.NextFree)
	if err != nil {
		return nil, &CallError{Service: s.name, Err: err}
	}

	pc := &pendingCall[Out]{
		id:     id,
		sentAt: s.device.clock.Now(),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.pending[id] = pc
	pc.timer = s.device.clock.AfterFunc(s.timeout, func() { s.expire(pc) })
	s.mu.Unlock()

	frame := make([]byte, 0, 1+len(s.disc)+len(payload))
	frame = append(frame, id)
	frame = append(frame, s.disc...)
	frame = append(frame, payload...)

	s.device.logCall(log.CallEvent{Service: s.name, SeqID: id, Outcome: log.CallSent})

	if err := s.device.write(frame); err != nil {
		s.device.logger.Warn("request not sent", "service", s.name, "id", id, "error", err)
		s.mu.Lock()
		pc.writeErr = err
		s.mu.Unlock()
	}
	return pc, nil
}

func (s *Service[In, Out]) resolve(id uint8, payload []byte) {
	s.mu.Lock()
	pc, ok := s.pending[id]
	s.mu.Unlock()
	if !ok {
		s.device.drop(log.DropUnmatchedResponse, payload, fmt.Sprintf("%s id %d", s.name, id))
		return
	}

	out, err := s.codec.Decode(payload)
	if err != nil {
		s.settle(pc, out, &CallError{Service: s.name, SeqID: id, Err: ErrDecode, Cause: err}, log.CallRejected)
		return
	}
	s.settle(pc, out, nil, log.CallResolved)
}

func (s *Service[In, Out]) expire(pc *pendingCall[Out]) {
	s.mu.Lock()
	cause := pc.writeErr
	s.mu.Unlock()

	var zero Out
	s.settle(pc, zero, &CallError{Service: s.name, SeqID: pc.id, Err: ErrTimeout, Cause: cause}, log.CallTimedOut)
}

func (s *Service[In, Out]) rejectAll(err error) {
	s.mu.Lock()
	calls := make([]*pendingCall[Out], 0, len(s.pending))
	for _, pc := range s.pending {
		calls = append(calls, pc)
	}
	s.mu.Unlock()

	var zero Out
	for _, pc := range calls {
		s.settle(pc, zero, &CallError{Service: s.name, SeqID: pc.id, Err: err}, log.CallRejected)
	}
}

// settle completes pc once and frees its id.
func (s *Service[In, Out]) settle(pc *pendingCall[Out], value Out, err error, outcome log.CallOutcome) {
	s.mu.Lock()
	if pc.settled {
		s.mu.Unlock()
		return
	}
	pc.settled = true
	pc.value, pc.err = value, err
	delete(s.pending, pc.id)
	if pc.timer != nil {
		pc.timer.Stop()
	}
	s.mu.Unlock()

	s.device.release(pc.id, s)
	close(pc.done)

	rtt := s.device.clock.Since(pc.sentAt)
	ev := log.CallEvent{Service: s.name, SeqID: pc.id, Outcome: outcome, RoundTrip: &rtt}
	if err != nil {
		ev.Cause = err.Error()
		s.device.logger.Debug("call failed", "service", s.name, "id", pc.id, "error", err)
	}
	s.device.logCall(ev)
	s.device.metrics.CallSettled(s.name, outcomeLabel(outcome), rtt)
}

func (s *Service[In, Out]) serviceName() string { return s.name }

func outcomeLabel(o log.CallOutcome) string {
	switch o {
	case log.CallResolved:
		return "resolved"
	case log.CallTimedOut:
		return "timeout"
	default:
		return "rejected"
	}
}
