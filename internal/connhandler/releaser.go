package connhandler

import (
	"errors"
	"net"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"interceptproxy/internal/gate"
	"interceptproxy/internal/pump"
)

// ConnectEstablished is the sentinel CONNECT response from spec.md §6,
// sent exactly once, before any upstream payload (invariant #7).
const ConnectEstablished = "HTTP/1.1 200 Connection Established\r\n\r\n"

// DefaultDialTimeout is spec.md §4.2/§5's default upstream connect timeout.
var DefaultDialTimeout = 10 * time.Second

// ErrDialTimeout is returned when an upstream dial does not complete within
// the configured timeout.
var ErrDialTimeout = errors.New("connhandler: upstream dial timed out")

// Dialer opens a plain TCP connection to addr. It is a plain net.Dial-style
// function with no timeout of its own — Releaser bounds it using an
// injectable clock, so tests can simulate a stalled dial without waiting on
// a real socket timeout.
type Dialer func(network, addr string) (net.Conn, error)

// Releaser dials upstream and starts a Byte Pump for a gate.PendingRequest.
// It implements gate.Releaser and is also invoked directly by the
// Connection Handler for Auto-mode (and mode-flip-race) dispatch, so both
// paths share identical release semantics.
type Releaser struct {
	Dial        Dialer
	Clock       clockwork.Clock
	DialTimeout time.Duration
	Log         *logrus.Logger
}

// NewReleaser builds a Releaser using the real network and real clock.
func NewReleaser(log *logrus.Logger) *Releaser {
	return &Releaser{
		Dial:        net.Dial,
		Clock:       clockwork.NewRealClock(),
		DialTimeout: DefaultDialTimeout,
		Log:         log,
	}
}

// Release dials upstream and pumps bytes for pr, per spec.md §4.4's
// definition of "release": for Tunnel, send the 200 sentinel then pump;
// for HTTP, send the captured raw head then pump (both directions, which
// also resolves spec.md §9's request-body-forwarding open question in
// favor of continuing to relay client->upstream after the head).
func (r *Releaser) Release(pr gate.PendingRequest) {
	switch pr.Kind {
	case gate.Tunnel:
		r.releaseTunnel(pr)
	default:
		r.releaseHTTP(pr)
	}
}

func (r *Releaser) releaseHTTP(pr gate.PendingRequest) {
	upstream, err := r.dialTimeout(net.JoinHostPort(pr.Record.Host, portString(pr.Record.Port)))
	if err != nil {
		r.Log.WithError(err).WithField("host", pr.Record.Host).Warn("upstream dial failed")
		_ = pr.Client.Close()
		return
	}
	if _, err := upstream.Write(pr.RawHead); err != nil {
		r.Log.WithError(err).Warn("failed to replay request head upstream")
		_ = upstream.Close()
		_ = pr.Client.Close()
		return
	}
	if err := pump.Pump(pr.Client, upstream); err != nil {
		r.Log.WithError(err).Debug("pump ended with error")
	}
}

func (r *Releaser) releaseTunnel(pr gate.PendingRequest) {
	upstream, err := r.dialTimeout(net.JoinHostPort(pr.Host, portString(pr.Port)))
	if err != nil {
		r.Log.WithError(err).WithField("host", pr.Host).Warn("upstream dial failed")
		_ = pr.Client.Close()
		return
	}
	if _, err := pr.Client.Write([]byte(ConnectEstablished)); err != nil {
		r.Log.WithError(err).Warn("failed to write CONNECT response to client")
		_ = upstream.Close()
		_ = pr.Client.Close()
		return
	}
	if err := pump.Pump(pr.Client, upstream); err != nil {
		r.Log.WithError(err).Debug("pump ended with error")
	}
}

type dialResult struct {
	conn net.Conn
	err  error
}

// dialTimeout races a plain dial against the injected clock's timer,
// grounded on docker-compose/pkg/watch/debounce.go's clock.After-driven
// timeout pattern.
func (r *Releaser) dialTimeout(addr string) (net.Conn, error) {
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, err := r.Dial("tcp", addr)
		resultCh <- dialResult{conn: conn, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.conn, res.err
	case <-r.Clock.After(r.DialTimeout):
		return nil, ErrDialTimeout
	}
}
