package proxyparse

import (
	"bufio"
	"strconv"
	"strings"
)

// DefaultHeadLimit is the recommended head-size ceiling from spec.md §4.1.
const DefaultHeadLimit = 64 * 1024

const headTerminator = "\r\n\r\n"

// MethodConnect is the HTTP method used to request an opaque TLS tunnel.
const MethodConnect = "CONNECT"

// ReadHead reads from r until the CRLFCRLF header terminator is seen or
// limit bytes have been buffered without finding one. It returns the raw
// head bytes, terminator included, ready for Parse.
func ReadHead(r *bufio.Reader, limit int) ([]byte, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			if len(buf) == 0 {
				return nil, ErrEmpty
			}
			return buf, err
		}
		buf = append(buf, b)
		if strings.HasSuffix(string(buf), headTerminator) {
			return buf, nil
		}
		if len(buf) >= limit {
			return buf, ErrHeadTooLarge
		}
	}
}

// Parse parses a complete request head (terminated by CRLFCRLF) into a
// Request, or returns ErrEmpty or ErrMalformed.
func Parse(head []byte) (Request, error) {
	if len(head) == 0 {
		return Request{}, ErrEmpty
	}

	text := string(head)
	text = strings.TrimSuffix(text, headTerminator)
	lines := strings.Split(text, "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return Request{}, ErrEmpty
	}

	requestLine := strings.Fields(lines[0])
	if len(requestLine) < 3 {
		return Request{}, ErrMalformed
	}
	method := strings.ToUpper(requestLine[0])
	target := requestLine[1]

	headers := make(map[string]string)
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		headers[name] = value
	}

	isTunnel := method == MethodConnect
	host, port := resolveHostPort(isTunnel, target, headers)

	return Request{
		Method:   method,
		Target:   target,
		Host:     host,
		Port:     port,
		Headers:  headers,
		RawHead:  head,
		IsTunnel: isTunnel,
	}, nil
}

// resolveHostPort implements spec.md §4.1's host-resolution rule: CONNECT
// derives host/port from the request-target (default 443); everything else
// derives them from the Host header (default 80).
func resolveHostPort(isTunnel bool, target string, headers map[string]string) (string, int) {
	if isTunnel {
		return splitHostPort(target, 443)
	}
	if hostHeader, ok := headers["host"]; ok && hostHeader != "" {
		return splitHostPort(hostHeader, 80)
	}
	return "", 80
}

// splitHostPort splits on the last colon, the way the Python original and
// spec.md §4.1 both specify. When the text after the last colon is not a
// decimal port, the whole string is the host and defaultPort is used; an
// unbracketed IPv6 literal whose last group is all digits is still split at
// its last colon.
func splitHostPort(hostport string, defaultPort int) (string, int) {
	idx := strings.LastIndexByte(hostport, ':')
	if idx < 0 {
		return hostport, defaultPort
	}
	host := hostport[:idx]
	portStr := hostport[idx+1:]
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return hostport, defaultPort
	}
	return host, port
}
