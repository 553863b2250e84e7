package pump

import (
	"io"
	"net"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// ChunkSize is the fixed copy chunk size from spec.md §4.3.
const ChunkSize = 4 * 1024

var bufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, ChunkSize)
		return &buf
	},
}

func getBuffer() *[]byte {
	return bufferPool.Get().(*[]byte)
}

func putBuffer(buf *[]byte) {
	bufferPool.Put(buf)
}

// halfCloser is implemented by net.TCPConn and tls.Conn: connections that
// support closing only their write side.
type halfCloser interface {
	CloseWrite() error
}

// Pump copies bytes between a and b in both directions concurrently until
// both directions have reached EOF or errored, then closes both streams
// exactly once. It blocks until both directions finish.
//
// Opacity: bytes are never interpreted. Liveness: a's direction to b and
// b's direction to a run independently, so a stalled peer on one direction
// does not starve the other (spec.md §4.3's guarantees).
func Pump(a, b net.Conn) error {
	var eg errgroup.Group
	var errAtoB, errBtoA error

	eg.Go(func() error {
		errAtoB = copyDirection(b, a)
		return nil
	})
	eg.Go(func() error {
		errBtoA = copyDirection(a, b)
		return nil
	})
	_ = eg.Wait()

	_ = a.Close()
	_ = b.Close()

	var result *multierror.Error
	result = multierror.Append(result, errAtoB)
	result = multierror.Append(result, errBtoA)
	return result.ErrorOrNil()
}

// copyDirection copies src -> dst until EOF or error, then half-closes
// dst's write side (whether the copy ended cleanly or not) so the peer's own
// copy direction can observe end-of-stream without waiting for a full close.
func copyDirection(dst, src net.Conn) error {
	buf := getBuffer()
	defer putBuffer(buf)

	_, err := io.CopyBuffer(dst, src, *buf)
	if hc, ok := dst.(halfCloser); ok {
		_ = hc.CloseWrite()
	}
	return err
}
