package gate

import (
	"net"

	"interceptproxy/internal/proxyparse"
)

// Kind distinguishes the two PendingRequest variants spec.md §3 mandates.
type Kind int

const (
	// HTTP holds a client connection whose request head has already been
	// read and must be replayed verbatim to the upstream on release.
	HTTP Kind = iota
	// Tunnel holds a client connection waiting for a CONNECT tunnel to be
	// established or dropped.
	Tunnel
)

// PendingRequest is a tagged variant, never a loose tuple, so release paths
// cannot be confused between the HTTP and Tunnel cases (spec.md §9).
type PendingRequest struct {
	Kind   Kind
	Client net.Conn
	Record proxyparse.Request

	// RawHead is the captured request head, set only for Kind == HTTP.
	RawHead []byte

	// Host and Port are the resolved upstream address, set only for
	// Kind == Tunnel (the HTTP case already carries this on Record).
	Host string
	Port int
}

// NewHTTP builds an HTTP-variant PendingRequest.
func NewHTTP(client net.Conn, rec proxyparse.Request, rawHead []byte) PendingRequest {
	return PendingRequest{Kind: HTTP, Client: client, Record: rec, RawHead: rawHead}
}

// NewTunnel builds a Tunnel-variant PendingRequest.
func NewTunnel(client net.Conn, rec proxyparse.Request, host string, port int) PendingRequest {
	return PendingRequest{Kind: Tunnel, Client: client, Record: rec, Host: host, Port: port}
}
