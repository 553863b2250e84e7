// Package connhandler implements the Connection Handler from spec.md §4.2:
// one instance per accepted client, owning the client socket from accept
// until it is handed off to either a Byte Pump (direct dispatch) or the
// Interception Gate (queued pending request).
//
// Grounded on the teacher's internal/tunnel/handler.go Process method
// (accumulate the request head, branch on CONNECT, dial upstream with a
// timeout), generalized so that a single head-read-and-parse path serves
// both HTTP and CONNECT requests (the request's own Method, not a
// preliminary peek, decides the branch — proxyparse.ReadHead already finds
// the CRLFCRLF boundary for either case, which the Python original's single
// recv(4096) CONNECT shortcut in original_source/netzy-proxy-https.py does
// not guarantee for a head split across reads).
package connhandler
