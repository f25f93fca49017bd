package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/homewire/homewire-go/pkg/log"
	"github.com/homewire/homewire-go/pkg/metrics"
	"github.com/homewire/homewire-go/pkg/sequence"
)

// UDP defaults.
const (
	DefaultRepeat         = 1
	DefaultRepeatDelay    = 15 * time.Millisecond
	DefaultResolveTimeout = 5 * time.Second

	// MaxDatagramSize bounds inbound datagrams.
	MaxDatagramSize = 1500
)

// UDPConfig configures a UDP transport.
type UDPConfig struct {
	// Name labels the transport in logs and metrics.
	Name string

	// Host is an IP literal or a name understood by Resolver.
	Host string

	// Port is the endpoint's UDP port.
	Port int

	// LocalAddress optionally binds the local side, e.g. ":9000".
	LocalAddress string

	// Repeat is how many times each frame is sent.
	Repeat int

	// RepeatDelay separates repeated sends.
	RepeatDelay time.Duration

	// Sequence enables the one-byte rolling sequence prefix.
	Sequence bool

	// ResyncAfter is passed to the inbound SequenceFilter.
	ResyncAfter int

	// KeepAliveInterval is the intent reconciliation period.
	KeepAliveInterval time.Duration

	// IdleTimeout forces a reconnect when nothing was received for this
	// long. Zero disables it.
	IdleTimeout time.Duration

	// ResolveTimeout bounds each resolve and dial.
	ResolveTimeout time.Duration

	// Resolver turns Host into an address. Defaults to DNSResolver.
	Resolver Resolver

	// Clock drives keepalive, idle and repeat timing. Defaults to the wall clock.
	Clock clock.Clock

	// Logger for operational logging.
	Logger *slog.Logger

	// ProtocolLogger receives capture events.
	ProtocolLogger log.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// DefaultUDPConfig returns a configuration with defaults applied.
func DefaultUDPConfig() UDPConfig {
	return UDPConfig{
		Repeat:            DefaultRepeat,
		RepeatDelay:       DefaultRepeatDelay,
		ResyncAfter:       DefaultResyncAfter,
		KeepAliveInterval: DefaultKeepAliveInterval,
		ResolveTimeout:    DefaultResolveTimeout,
	}
}

func (c *UDPConfig) applyDefaults() {
	d := DefaultUDPConfig()
	if c.Repeat <= 0 {
		c.Repeat = d.Repeat
	}
	if c.RepeatDelay <= 0 {
		c.RepeatDelay = d.RepeatDelay
	}
	if c.ResyncAfter <= 0 {
		c.ResyncAfter = d.ResyncAfter
	}
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = d.KeepAliveInterval
	}
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = d.ResolveTimeout
	}
	if c.Resolver == nil {
		c.Resolver = DNSResolver{}
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Name == "" && c.Host != "" {
		c.Name = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	}
}

// UDP is a single-endpoint datagram transport.
type UDP struct {
	*Base

	config    UDPConfig
	keepAlive *KeepAlive
	txSeq     *sequence.Allocator
	rxSeq     *SequenceFilter

	// dialMu serializes open and close.
	dialMu sync.Mutex

	mu     sync.Mutex
	conn   *net.UDPConn
	wanted bool
	closed bool
	lastRx time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewUDP creates a UDP transport. It does not connect.
func NewUDP(config UDPConfig) (*UDP, error) {
	if config.Host == "" {
		return nil, ErrMissingHost
	}
	if config.Port <= 0 || config.Port > 65535 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPort, config.Port)
	}
	config.applyDefaults()

	u := &UDP{
		Base: NewBase(BaseConfig{
			Name:           config.Name,
			Logger:         config.Logger,
			ProtocolLogger: config.ProtocolLogger,
			Metrics:        config.Metrics,
		}),
		config: config,
		txSeq:  sequence.MustNew(0, 255),
		rxSeq:  NewSequenceFilter(config.ResyncAfter),
		stopCh: make(chan struct{}),
	}
	u.keepAlive = NewKeepAlive(config.KeepAliveInterval, config.Clock, u.reconcile)
	return u, nil
}

// Config returns the effective configuration.
func (u *UDP) Config() UDPConfig {
	return u.config
}

// AddDevice registers the single endpoint of this transport.
func (u *UDP) AddDevice(r Receiver) (*Binding, error) {
	return u.Register(u, r)
}

// Connect sets the connection intent, starts the keepalive loop and makes
// a first connection attempt. A failed attempt is retried on every tick.
func (u *UDP) Connect(ctx context.Context) error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	u.wanted = true
	u.mu.Unlock()

	u.keepAlive.Start()
	return u.open(ctx)
}

// Disconnect clears the connection intent and closes the socket.
func (u *UDP) Disconnect() error {
	u.mu.Lock()
	u.wanted = false
	u.mu.Unlock()

	u.shutdown("disconnect requested")
	return nil
}

// Reconnect closes the socket and opens a new one.
func (u *UDP) Reconnect(ctx context.Context) error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	u.wanted = true
	u.mu.Unlock()

	u.keepAlive.Start()
	u.shutdown("reconnect requested")
	return u.open(ctx)
}

// Close stops the keepalive loop and releases the socket.
func (u *UDP) Close() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return nil
	}
	u.closed = true
	u.wanted = false
	close(u.stopCh)
	u.mu.Unlock()

	u.keepAlive.Stop()
	u.shutdown("closed")
	u.wg.Wait()
	return nil
}

// LocalAddr returns the local socket address, or nil when disconnected.
func (u *UDP) LocalAddr() *net.UDPAddr {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn == nil {
		return nil
	}
	addr, _ := u.conn.LocalAddr().(*net.UDPAddr)
	return addr
}

// WriteToNetwork sends payload to the endpoint. The first send is
// synchronous; configured repeats follow in the background.
func (u *UDP) WriteToNetwork(id []byte, payload []byte) error {
	if len(id) != 0 {
		return u.CheckIdentifier(id)
	}

	u.mu.Lock()
	conn := u.conn
	u.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	frame := payload
	if u.config.Sequence {
		frame = make([]byte, 0, len(payload)+1)
		frame = append(frame, byte(u.txSeq.Next()))
		frame = append(frame, payload...)
	}

	if _, err := conn.Write(frame); err != nil {
		u.Logger().Warn("udp write failed", "error", err)
		u.CaptureError(err, "write")
		return fmt.Errorf("udp write: %w", err)
	}
	u.CaptureFrame(log.DirectionOut, nil, frame, 0)

	if u.config.Repeat > 1 {
		u.mu.Lock()
		if u.conn == conn {
			u.wg.Add(1)
			go u.repeat(conn, frame)
		}
		u.mu.Unlock()
	}
	return nil
}

func (u *UDP) repeat(conn *net.UDPConn, frame []byte) {
	defer u.wg.Done()

	for i := 1; i < u.config.Repeat; i++ {
		select {
		case <-u.stopCh:
			return
		case <-u.config.Clock.After(u.config.RepeatDelay):
		}

		u.mu.Lock()
		current := u.conn == conn
		u.mu.Unlock()
		if !current {
			return
		}
		if _, err := conn.Write(frame); err != nil {
			u.Logger().Debug("udp repeat failed", "repeat", i, "error", err)
			return
		}
		u.CaptureFrame(log.DirectionOut, nil, frame, i)
	}
}

// open resolves the host and dials a new socket if none is open.
func (u *UDP) open(ctx context.Context) error {
	u.dialMu.Lock()
	defer u.dialMu.Unlock()

	u.mu.Lock()
	if u.conn != nil {
		u.mu.Unlock()
		return nil
	}
	if !u.wanted || u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	u.mu.Unlock()

	u.SetState(StateConnecting, "")

	ctx, cancel := context.WithTimeout(ctx, u.config.ResolveTimeout)
	defer cancel()

	conn, err := u.dial(ctx)
	if err != nil {
		u.Logger().Warn("udp connect failed", "host", u.config.Host, "error", err)
		u.CaptureError(err, "connect")
		u.SetState(StateDisconnected, err.Error())
		return err
	}

	u.mu.Lock()
	if !u.wanted || u.closed {
		u.mu.Unlock()
		conn.Close()
		u.SetState(StateDisconnected, "closed while connecting")
		return ErrClosed
	}
	u.conn = conn
	u.lastRx = u.config.Clock.Now()
	u.rxSeq.Reset()
	u.wg.Add(1)
	u.mu.Unlock()

	go u.readLoop(conn)

	u.Logger().Info("udp connected", "remote", conn.RemoteAddr().String(), "local", conn.LocalAddr().String())
	u.SetState(StateConnected, conn.RemoteAddr().String())
	return nil
}

func (u *UDP) dial(ctx context.Context) (*net.UDPConn, error) {
	raddr, err := u.config.Resolver.ResolveUDP(ctx, u.config.Host, u.config.Port)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", u.config.Host, err)
	}

	var laddr *net.UDPAddr
	if u.config.LocalAddress != "" {
		laddr, err = net.ResolveUDPAddr("udp", u.config.LocalAddress)
		if err != nil {
			return nil, fmt.Errorf("local address %s: %w", u.config.LocalAddress, err)
		}
	}

	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", raddr, err)
	}
	return conn, nil
}

// shutdown closes the current socket, if any, and reports DISCONNECTED.
func (u *UDP) shutdown(reason string) {
	u.dialMu.Lock()
	defer u.dialMu.Unlock()

	u.mu.Lock()
	conn := u.conn
	u.conn = nil
	u.mu.Unlock()

	if conn != nil {
		conn.Close()
		u.Logger().Info("udp disconnected", "reason", reason)
	}
	u.SetState(StateDisconnected, reason)
}

// drop closes conn if it is still the current socket.
func (u *UDP) drop(conn *net.UDPConn, reason string) {
	u.dialMu.Lock()
	defer u.dialMu.Unlock()

	u.mu.Lock()
	if u.conn != conn {
		u.mu.Unlock()
		return
	}
	u.conn = nil
	u.mu.Unlock()

	conn.Close()
	u.Logger().Warn("udp connection lost", "reason", reason)
	u.SetState(StateDisconnected, reason)
}

func (u *UDP) readLoop(conn *net.UDPConn) {
	defer u.wg.Done()

	buf := make([]byte, MaxDatagramSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			u.CaptureError(err, "read")
			u.drop(conn, err.Error())
			return
		}
		u.receive(append([]byte(nil), buf[:n]...))
	}
}

func (u *UDP) receive(datagram []byte) {
	u.mu.Lock()
	u.lastRx = u.config.Clock.Now()
	u.mu.Unlock()

	u.CaptureFrame(log.DirectionIn, nil, datagram, 0)

	frame := datagram
	if u.config.Sequence {
		if len(datagram) < 1 {
			u.Drop(log.DropInvalidPayload, nil, datagram, "missing sequence byte")
			return
		}
		seq := datagram[0]
		if !u.rxSeq.Accept(seq) {
			last, _ := u.rxSeq.Last()
			u.Drop(log.DropStaleSequence, nil, datagram, fmt.Sprintf("seq %d after %d", seq, last))
			return
		}
		frame = datagram[1:]
	}

	u.Deliver(nil, frame)
}

// reconcile runs on every keepalive tick.
func (u *UDP) reconcile() {
	u.mu.Lock()
	wanted := u.wanted && !u.closed
	open := u.conn != nil
	idle := u.config.IdleTimeout > 0 && open &&
		u.config.Clock.Since(u.lastRx) >= u.config.IdleTimeout
	u.mu.Unlock()

	switch {
	case wanted && !open:
		u.Metrics().ReconnectAttempt(u.Name())
		_ = u.open(context.Background())
	case !wanted && open:
		u.shutdown("not wanted")
	case wanted && idle:
		u.Logger().Info("udp idle timeout", "timeout", u.config.IdleTimeout)
		u.Metrics().ReconnectAttempt(u.Name())
		u.shutdown("idle timeout")
		_ = u.open(context.Background())
	}
}
