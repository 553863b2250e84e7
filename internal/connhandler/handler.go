package connhandler

import (
	"bufio"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"interceptproxy/internal/display"
	"interceptproxy/internal/gate"
	"interceptproxy/internal/proxyparse"
)

// HeadReadTimeout bounds how long a client has to send a complete request
// head, matching the teacher's ClientReadTimeout in internal/tunnel/tunnel.go.
var HeadReadTimeout = 60 * time.Second

// Handler is one Connection Handler instance (spec.md §4.2): it owns conn
// from the moment it is handed a freshly accepted socket until the socket
// is transferred to either the Gate (manual mode) or a Byte Pump (auto
// mode / mode-flip race), via the shared Releaser.
type Handler struct {
	Gate      *gate.Gate
	Releaser  *Releaser
	Sink      display.Sink
	HeadLimit int
	Log       *logrus.Logger
}

// New builds a Handler with spec.md §4.1's default head-size ceiling.
func New(g *gate.Gate, releaser *Releaser, sink display.Sink, log *logrus.Logger) *Handler {
	return &Handler{
		Gate:      g,
		Releaser:  releaser,
		Sink:      sink,
		HeadLimit: proxyparse.DefaultHeadLimit,
		Log:       log,
	}
}

// Handle processes one accepted client connection end to end. It never
// returns an error to the caller: every failure is contained by closing the
// client connection, per spec.md §7's propagation policy.
func (h *Handler) Handle(conn net.Conn) {
	clientAddr := conn.RemoteAddr().String()

	if err := conn.SetReadDeadline(time.Now().Add(HeadReadTimeout)); err != nil {
		h.Log.WithError(err).Debug("failed to set read deadline")
	}
	br := bufio.NewReader(conn)
	head, err := proxyparse.ReadHead(br, h.HeadLimit)
	if err != nil {
		h.Log.WithError(err).WithField("client_addr", clientAddr).Debug("failed to read request head")
		_ = conn.Close()
		return
	}

	req, err := proxyparse.Parse(head)
	if err != nil {
		h.Log.WithError(err).WithField("client_addr", clientAddr).Debug("failed to parse request")
		_ = conn.Close()
		return
	}
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		h.Log.WithError(err).Debug("failed to clear read deadline")
	}

	h.emitRequestEvent(clientAddr, req)

	// br may already hold bytes past the head's CRLFCRLF terminator (a
	// request body or a pipelined next request); bc makes sure those bytes
	// are read back out before falling through to fresh conn reads.
	bc := newBufferedConn(conn, br)

	var pr gate.PendingRequest
	if req.IsTunnel {
		pr = gate.NewTunnel(bc, req, req.Host, req.Port)
	} else {
		pr = gate.NewHTTP(bc, req, head)
	}

	if h.Gate.Mode() == gate.Manual && h.Gate.TryEnqueue(pr) {
		return
	}
	// Auto mode, or the mode flipped to Auto between the check above and
	// TryEnqueue (spec.md §9's mode-flip race): dispatch directly ourselves.
	h.Releaser.Release(pr)
}

func (h *Handler) emitRequestEvent(clientAddr string, req proxyparse.Request) {
	protocol := display.HTTP
	if req.IsTunnel {
		protocol = display.HTTPS
	}
	h.Sink.Request(display.RequestEvent{
		ClientAddr:      clientAddr,
		Protocol:        protocol,
		Method:          req.Method,
		Host:            net.JoinHostPort(req.Host, portString(req.Port)),
		Target:          req.Target,
		SelectedHeaders: display.SelectHeaders(req.Headers),
		QueueDepth:      h.Gate.Len(),
	})
}

func portString(port int) string {
	return strconv.Itoa(port)
}
