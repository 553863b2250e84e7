package connhandler

import (
	"bufio"
	"net"
)

// writeCloser mirrors pump's unexported halfCloser interface structurally,
// so bufferedConn can forward a CloseWrite call without connhandler
// depending on pump's internals.
type writeCloser interface {
	CloseWrite() error
}

// bufferedConn lets the Byte Pump read through the same bufio.Reader the
// Connection Handler used to find the request head's CRLFCRLF terminator.
// proxyparse.ReadHead fills the reader's buffer a full Read() at a time, so
// a request body (or a pipelined next request) that arrived in the same
// segment as the head is sitting in that buffer, past the terminator, and
// would otherwise never reach the upstream write in releaseHTTP/
// releaseTunnel. Wrapping the buffered remainder here, rather than reading
// it off separately, is what makes "continue pumping client->upstream
// after the head" (spec.md §9's resolved body-forwarding question) actually
// forward every byte the client sent.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func newBufferedConn(conn net.Conn, r *bufio.Reader) *bufferedConn {
	return &bufferedConn{Conn: conn, r: r}
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

// CloseWrite forwards to the underlying connection's half-close when it
// supports one, so the Byte Pump's halfCloser optimization still applies
// through the wrapper.
func (c *bufferedConn) CloseWrite() error {
	if hc, ok := c.Conn.(writeCloser); ok {
		return hc.CloseWrite()
	}
	return nil
}
