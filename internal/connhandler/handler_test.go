package connhandler

import (
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interceptproxy/internal/display"
	"interceptproxy/internal/gate"
	"interceptproxy/internal/proxyparse"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testReleaser() *Releaser {
	return &Releaser{
		Dial:        net.Dial,
		Clock:       clockwork.NewRealClock(),
		DialTimeout: 2 * time.Second,
		Log:         testLogger(),
	}
}

func startEchoUpstream(t *testing.T, response string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		go io.Copy(io.Discard, conn)
		conn.Write([]byte(response))
	}()

	return ln.Addr().String()
}

func TestHandleAutoHTTPForward(t *testing.T) {
	upstreamAddr := startEchoUpstream(t, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")

	sink := &display.RecordingSink{}
	rel := testReleaser()
	g := gate.New(rel)
	h := New(g, rel, sink, testLogger())

	client, server := net.Pipe()
	defer client.Close()

	go h.Handle(server)

	req := fmt.Sprintf("GET /hello HTTP/1.1\r\nHost: %s\r\n\r\n", upstreamAddr)
	_, err := client.Write([]byte(req))
	require.NoError(t, err)

	buf := make([]byte, len("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"))
	_, err = io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf), "200 OK")

	require.Len(t, sink.Requests, 1)
	ev := sink.Requests[0]
	assert.Equal(t, "GET", ev.Method)
	assert.Equal(t, "/hello", ev.Target)
	assert.Equal(t, upstreamAddr, ev.Host)
	assert.Equal(t, display.HTTP, ev.Protocol)
	assert.Equal(t, 0, ev.QueueDepth)
}

func TestHandleAutoHTTPForwardsBufferedRequestBody(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	upstreamAddr := ln.Addr().String()

	body := "field=value&more=data"
	reqHead := fmt.Sprintf("POST /submit HTTP/1.1\r\nHost: %s\r\nContent-Length: %d\r\n\r\n", upstreamAddr, len(body))
	fullReq := reqHead + body

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, len(fullReq))
		_, _ = io.ReadFull(conn, buf)
		received <- buf
		go io.Copy(io.Discard, conn)
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"))
	}()

	sink := &display.RecordingSink{}
	rel := testReleaser()
	g := gate.New(rel)
	h := New(g, rel, sink, testLogger())

	client, server := net.Pipe()
	defer client.Close()

	go h.Handle(server)

	// A single Write puts the head and the body in the same bufio.Reader
	// fill, so the body sits in the reader's buffer past the CRLFCRLF
	// terminator — exactly the case that must still reach upstream.
	_, err = client.Write([]byte(fullReq))
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, fullReq, string(got), "upstream must receive the request head followed by its buffered body, byte for byte")
	case <-time.After(2 * time.Second):
		t.Fatal("upstream never received the full request including its body")
	}
}

func TestHandleAutoConnectTunnel(t *testing.T) {
	upstreamAddr := startEchoUpstream(t, "tunnel-payload")

	sink := &display.RecordingSink{}
	rel := testReleaser()
	g := gate.New(rel)
	h := New(g, rel, sink, testLogger())

	client, server := net.Pipe()
	defer client.Close()

	go h.Handle(server)

	req := fmt.Sprintf("CONNECT %s HTTP/1.1\r\n\r\n", upstreamAddr)
	_, err := client.Write([]byte(req))
	require.NoError(t, err)

	buf := make([]byte, len(ConnectEstablished))
	_, err = io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, ConnectEstablished, string(buf))

	payload := make([]byte, len("tunnel-payload"))
	_, err = io.ReadFull(client, payload)
	require.NoError(t, err)
	assert.Equal(t, "tunnel-payload", string(payload))

	require.Len(t, sink.Requests, 1)
	assert.Equal(t, display.HTTPS, sink.Requests[0].Protocol)
	assert.Equal(t, "CONNECT", sink.Requests[0].Method)
}

func TestHandleManualModeEnqueuesWithoutDialing(t *testing.T) {
	sink := &display.RecordingSink{}
	rel := testReleaser()
	g := gate.New(rel)
	g.SetManual()
	h := New(g, rel, sink, testLogger())

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		h.Handle(server)
		close(done)
	}()

	_, err := client.Write([]byte("GET / HTTP/1.1\r\nHost: example.test\r\n\r\n"))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle did not return for a manual-mode enqueue")
	}

	assert.Equal(t, 1, g.Len())
	require.Len(t, sink.Requests, 1)
	assert.Equal(t, 0, sink.Requests[0].QueueDepth, "depth observed before the enqueue")
}

func TestHandleMalformedRequestClosesWithoutEvent(t *testing.T) {
	sink := &display.RecordingSink{}
	rel := testReleaser()
	g := gate.New(rel)
	h := New(g, rel, sink, testLogger())

	client, server := net.Pipe()

	done := make(chan struct{})
	go func() {
		h.Handle(server)
		close(done)
	}()

	_, err := client.Write([]byte("GARBAGE\r\n\r\n"))
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Handle did not return for a malformed request")
	}

	buf := make([]byte, 1)
	_, err = client.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
	assert.Empty(t, sink.Requests)
}

func TestReleaseHTTPDialFailureClosesClient(t *testing.T) {
	rel := &Releaser{
		Dial: func(network, addr string) (net.Conn, error) {
			return nil, fmt.Errorf("connection refused")
		},
		Clock:       clockwork.NewRealClock(),
		DialTimeout: time.Second,
		Log:         testLogger(),
	}

	client, server := net.Pipe()
	pr := gate.NewHTTP(server, proxyparse.Request{Host: "unreachable.test", Port: 80}, []byte("GET / HTTP/1.1\r\n\r\n"))

	done := make(chan struct{})
	go func() {
		rel.Release(pr)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Release did not return after dial failure")
	}

	buf := make([]byte, 1)
	_, err := client.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReleaseDialTimeoutUsesInjectedClock(t *testing.T) {
	fakeClock := clockwork.NewFakeClock()
	blockDial := make(chan struct{})
	rel := &Releaser{
		Dial: func(network, addr string) (net.Conn, error) {
			<-blockDial
			return nil, fmt.Errorf("never reached")
		},
		Clock:       fakeClock,
		DialTimeout: 10 * time.Second,
		Log:         testLogger(),
	}
	defer close(blockDial)

	client, server := net.Pipe()
	pr := gate.NewHTTP(server, proxyparse.Request{Host: "stalled.test", Port: 80}, []byte("GET / HTTP/1.1\r\n\r\n"))

	done := make(chan struct{})
	go func() {
		rel.Release(pr)
		close(done)
	}()

	fakeClock.BlockUntil(1)
	fakeClock.Advance(10 * time.Second)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Release did not time out against the fake clock")
	}

	buf := make([]byte, 1)
	_, err := client.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}
