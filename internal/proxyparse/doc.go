// Package proxyparse parses the head of a client HTTP/1.x request into a
// structured Request, the way the proxy's Connection Handler needs it:
// method, request-target, resolved host/port, and a lowercased header map.
//
// The parser never reads past the first blank line. It does not validate
// method names, does not interpret a request body, and does not know about
// keep-alive framing — that is out of scope for a man-in-the-middle proxy
// that relays the captured head verbatim.
package proxyparse
