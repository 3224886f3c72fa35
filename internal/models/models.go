// FILENAME: internal/models/models.go
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CapturedRequest is a prepared request: the fully specified method, URL,
// headers and body the engine sends without any marker substitution.
// Helpers return modified copies so a request can be shared between tasks.
type CapturedRequest struct {
	Method   string
	URL      string
	Headers  map[string]string
	Body     []byte
	Protocol string
}

// Clone creates a deep copy of the request.
func (r *CapturedRequest) Clone() *CapturedRequest {
	if r == nil {
		return nil
	}
	c := &CapturedRequest{
		Method:   r.Method,
		URL:      r.URL,
		Protocol: r.Protocol,
		Headers:  make(map[string]string, len(r.Headers)),
	}

	for k, v := range r.Headers {
		c.Headers[k] = v
	}

	if len(r.Body) > 0 {
		c.Body = make([]byte, len(r.Body))
		copy(c.Body, r.Body)
	}

	return c
}

// Header looks up a header case-insensitively.
func (r *CapturedRequest) Header(name string) (string, bool) {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// WithHeader returns a copy with the header set, replacing any existing
// header of the same name regardless of case.
func (r *CapturedRequest) WithHeader(name, value string) *CapturedRequest {
	c := r.WithoutHeader(name)
	c.Headers[name] = value
	return c
}

func (r *CapturedRequest) WithoutHeader(name string) *CapturedRequest {
	c := r.Clone()
	for k := range c.Headers {
		if strings.EqualFold(k, name) {
			delete(c.Headers, k)
		}
	}
	return c
}

func (r *CapturedRequest) WithMethod(method string) *CapturedRequest {
	c := r.Clone()
	c.Method = method
	return c
}

// WithBody returns a copy carrying body. Content-Length is left to the transport.
func (r *CapturedRequest) WithBody(body []byte) *CapturedRequest {
	c := r.Clone()
	c.Body = append([]byte(nil), body...)
	return c
}

// QueryParams returns the names of the URL query parameters in the order
// they appear in the URL. Duplicates are reported once.
func (r *CapturedRequest) QueryParams() ([]string, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	var names []string
	seen := make(map[string]struct{})
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		name, _, _ := strings.Cut(pair, "=")
		name, err = url.QueryUnescape(name)
		if err != nil {
			return nil, fmt.Errorf("invalid query parameter %q: %w", pair, err)
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

// WithQueryParam returns a copy whose URL has every occurrence of the named
// query parameter set to value. Other parameters keep their raw encoding and order.
func (r *CapturedRequest) WithQueryParam(name, value string) (*CapturedRequest, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	pairs := strings.Split(u.RawQuery, "&")
	found := false
	for i, pair := range pairs {
		key, _, _ := strings.Cut(pair, "=")
		decoded, err := url.QueryUnescape(key)
		if err != nil || decoded != name {
			continue
		}
		pairs[i] = key + "=" + url.QueryEscape(value)
		found = true
	}
	if !found {
		return nil, fmt.Errorf("query parameter %q not present", name)
	}
	u.RawQuery = strings.Join(pairs, "&")

	c := r.Clone()
	c.URL = u.String()
	return c, nil
}

// Response is the record the engine produces for one executed task.
// Scripts treat it as read-only.
type Response struct {
	TaskID      int64
	StatusCode  int
	Length      int
	Body        []byte
	Headers     http.Header
	Interesting bool
	Blocked     bool
	LearnGroup  int
	Payloads    []string
	Request     *CapturedRequest
	Duration    time.Duration
	BodyHash    string
	BodySnippet string
	Title       string
	Error       error
}

// NewResponse builds a record from the raw pieces of an exchange.
// A nil body stays nil so callers can tell an absent body from an empty one.
func NewResponse(id int64, statusCode int, headers http.Header, body []byte, duration time.Duration, err error) *Response {
	r := &Response{
		TaskID:     id,
		StatusCode: statusCode,
		Headers:    headers,
		Body:       body,
		Length:     len(body),
		Duration:   duration,
		Error:      err,
	}
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}

	if err == nil && len(body) > 0 {
		hash := sha256.Sum256(body)
		r.BodyHash = hex.EncodeToString(hash[:])

		limit := 50
		if len(body) < limit {
			limit = len(body)
		}
		r.BodySnippet = string(body[:limit])
		r.Title = ExtractTitle(body)
	} else {
		r.BodyHash = "empty"
	}

	return r
}

// Text returns the body as a string. An absent body reads as "".
func (r *Response) Text() string {
	if r == nil || r.Body == nil {
		return ""
	}
	return string(r.Body)
}

// URL is the target the response was fetched from, if known.
func (r *Response) URL() string {
	if r == nil || r.Request == nil {
		return ""
	}
	return r.Request.URL
}

func (r *Response) String() string {
	if r.Error != nil {
		return fmt.Sprintf("[%04d] ERR: %v", r.TaskID, r.Error)
	}
	return fmt.Sprintf("[%04d] %d | %d | %v | %s...", r.TaskID, r.StatusCode, r.Length, r.Duration, r.BodySnippet)
}

// Exchange is a captured request paired with the response it got, if any.
type Exchange struct {
	Request  *CapturedRequest
	Response *Response
}
