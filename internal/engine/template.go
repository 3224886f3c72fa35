// FILENAME: internal/engine/template.go
package engine

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/xkilldash9x/mutafuzz/internal/models"
	"github.com/xkilldash9x/mutafuzz/internal/payload"
)

func hasMarker(template string) bool {
	return strings.Contains(template, payload.Marker)
}

// RenderTemplate prepares a raw request for parsing: line endings become
// CRLF, markers are replaced left to right with one payload each, and an
// HTTP/2 request line is downgraded to HTTP/1.1. Payload text is never
// rescanned for markers, and markers without a payload are left in place.
func RenderTemplate(template string, payloads []string) string {
	normalized := strings.ReplaceAll(template, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\n", "\r\n")

	var b strings.Builder
	rest := normalized
	for _, p := range payloads {
		before, after, found := strings.Cut(rest, payload.Marker)
		if !found {
			break
		}
		b.WriteString(before)
		b.WriteString(p)
		rest = after
	}
	b.WriteString(rest)
	out := b.String()

	line, tail, _ := strings.Cut(out, "\r\n")
	if strings.HasSuffix(line, " HTTP/2") || strings.HasSuffix(line, " HTTP/2.0") {
		line = line[:strings.LastIndexByte(line, ' ')] + " HTTP/1.1"
		out = line + "\r\n" + tail
	}
	return out
}

// ParseRawRequest parses a rendered raw request. The request target is kept
// verbatim so payloads that are not valid URL text still reach the wire.
// base supplies scheme and host; when it is empty the Host header is used
// with https.
func ParseRawRequest(raw, base string) (*models.CapturedRequest, error) {
	head, body, _ := strings.Cut(raw, "\r\n\r\n")
	lines := strings.Split(head, "\r\n")

	requestLine := strings.TrimSpace(lines[0])
	first := strings.IndexByte(requestLine, ' ')
	last := strings.LastIndexByte(requestLine, ' ')
	if first <= 0 || last <= first {
		return nil, fmt.Errorf("malformed request line: %q", requestLine)
	}
	method := requestLine[:first]
	target := strings.TrimSpace(requestLine[first+1 : last])
	proto := requestLine[last+1:]
	if !strings.HasPrefix(proto, "HTTP/") {
		return nil, fmt.Errorf("malformed request line: %q", requestLine)
	}

	req := &models.CapturedRequest{
		Method:   method,
		Headers:  make(map[string]string, len(lines)-1),
		Protocol: proto,
	}
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header line: %q", line)
		}
		req.Headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if body != "" {
		req.Body = []byte(body)
	}

	// Absolute-form targets carry their own origin
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		req.URL = target
		return req, nil
	}

	origin, err := originOf(base)
	if err != nil {
		return nil, err
	}
	if origin == "" {
		host, ok := req.Header("Host")
		if !ok || host == "" {
			return nil, fmt.Errorf("no target URL and no Host header")
		}
		origin = "https://" + host
	}
	if !strings.HasPrefix(target, "/") && target != "*" {
		target = "/" + target
	}
	req.URL = origin + target
	return req, nil
}

// originOf reduces a URL to scheme://host.
func originOf(base string) (string, error) {
	if base == "" {
		return "", nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid URL: %q needs scheme and host", base)
	}
	return u.Scheme + "://" + u.Host, nil
}

// splitTarget separates scheme://host from the raw request target.
func splitTarget(raw string) (*url.URL, string, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return nil, "", fmt.Errorf("invalid URL: %q", raw)
	}
	host, target := rest, "/"
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		host, target = rest[:i], rest[i:]
		if strings.HasPrefix(target, "?") {
			target = "/" + target
		}
	}
	if host == "" {
		return nil, "", fmt.Errorf("invalid URL: %q has no host", raw)
	}
	return &url.URL{Scheme: strings.ToLower(scheme), Host: host}, target, nil
}

// BuildHTTPRequest turns a prepared request into an *http.Request.
//
// Content-Length and Transfer-Encoding are recomputed. The Host header of
// the request is only honored with KeepHostHeader. Connection is forced to
// close or keep-alive for templates sent over HTTP/1.x; h2 and h3 forbid the
// header, so closing is expressed through Request.Close instead.
func BuildHTTPRequest(ctx context.Context, spec *models.CapturedRequest, opts Options) (*http.Request, error) {
	u, target, err := splitTarget(spec.URL)
	if err != nil {
		return nil, err
	}
	// Opaque is written to the wire as-is
	u.Opaque = target

	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, u.Scheme+"://"+u.Host+"/", bytes.NewReader(spec.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL = u
	req.ContentLength = int64(len(spec.Body))
	if len(spec.Body) == 0 {
		req.Body = http.NoBody
	}

	for k, v := range spec.Headers {
		switch http.CanonicalHeaderKey(k) {
		case "Host":
			if opts.KeepHostHeader {
				req.Host = v
			}
			continue
		case "Content-Length", "Transfer-Encoding", "Connection":
			continue
		}
		req.Header.Set(k, v)
	}

	switch {
	case opts.Protocol == "h2" || opts.Protocol == "h3" || spec.Protocol == "":
		// URL requests carry no Connection header of their own
		req.Close = opts.ForceCloseConnection
	case opts.ForceCloseConnection:
		req.Header.Set("Connection", "close")
	default:
		req.Header.Set("Connection", "keep-alive")
	}
	return req, nil
}
