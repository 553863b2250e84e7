package gate

import (
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interceptproxy/internal/proxyparse"
)

// recordingReleaser records the order in which PendingRequests are released,
// standing in for the real dial-upstream-and-pump Releaser in tests.
type recordingReleaser struct {
	mu       sync.Mutex
	released []PendingRequest
}

func (r *recordingReleaser) Release(pr PendingRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, pr)
}

func (r *recordingReleaser) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.released))
	for i, pr := range r.released {
		names[i] = pr.Record.Target
	}
	return names
}

func fakePending(target string) PendingRequest {
	client, _ := net.Pipe()
	return NewHTTP(client, proxyparse.Request{Method: "GET", Target: target}, nil)
}

func TestGateStartsAutoWithEmptyQueue(t *testing.T) {
	g := New(&recordingReleaser{})
	assert.Equal(t, Auto, g.Mode())
	assert.Equal(t, 0, g.Len())
}

func TestTryEnqueueRejectedInAuto(t *testing.T) {
	g := New(&recordingReleaser{})
	ok := g.TryEnqueue(fakePending("a"))
	assert.False(t, ok)
	assert.Equal(t, 0, g.Len())
}

func TestTryEnqueueAcceptedInManual(t *testing.T) {
	g := New(&recordingReleaser{})
	g.SetManual()
	ok := g.TryEnqueue(fakePending("a"))
	assert.True(t, ok)
	assert.Equal(t, 1, g.Len())
}

func TestForwardOneFIFOOrder(t *testing.T) {
	releaser := &recordingReleaser{}
	g := New(releaser)
	g.SetManual()
	require.True(t, g.TryEnqueue(fakePending("a")))
	require.True(t, g.TryEnqueue(fakePending("b")))

	remaining := g.ForwardOne()
	assert.Equal(t, 1, remaining)
	remaining = g.ForwardOne()
	assert.Equal(t, 0, remaining)

	assert.Equal(t, []string{"a", "b"}, releaser.names())
}

func TestForwardOneOnEmptyQueue(t *testing.T) {
	g := New(&recordingReleaser{})
	g.SetManual()
	assert.Equal(t, -1, g.ForwardOne())
}

func TestDropOneClosesClientWithoutReleasing(t *testing.T) {
	releaser := &recordingReleaser{}
	g := New(releaser)
	g.SetManual()
	pr := fakePending("a")
	require.True(t, g.TryEnqueue(pr))

	remaining := g.DropOne()
	assert.Equal(t, 0, remaining)
	assert.Empty(t, releaser.names())

	_, err := pr.Client.Write([]byte("x"))
	assert.Error(t, err)
}

func TestSetAutoDrainsInFIFOOrder(t *testing.T) {
	releaser := &recordingReleaser{}
	g := New(releaser)
	g.SetManual()
	require.True(t, g.TryEnqueue(fakePending("x")))
	require.True(t, g.TryEnqueue(fakePending("y")))
	require.True(t, g.TryEnqueue(fakePending("z")))

	drained := g.SetAuto()
	assert.Equal(t, 3, drained)
	assert.Equal(t, Auto, g.Mode())
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, []string{"x", "y", "z"}, releaser.names())
}

func TestSetAutoWhenAlreadyAutoDrainsNothing(t *testing.T) {
	g := New(&recordingReleaser{})
	assert.Equal(t, 0, g.SetAuto())
}
