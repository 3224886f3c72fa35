// FILENAME: internal/engine/baseline.go
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/xkilldash9x/mutafuzz/internal/models"
)

// Attribute is one observable property of a response used to decide
// whether two responses are variations of the same page.
type Attribute int

const (
	AttrStatusCode Attribute = iota
	AttrContentLength
	AttrContentType
	AttrLocation
	AttrETag
	AttrLastModified
	AttrCookieNames
	AttrWordCount
	AttrLineCount
	AttrPageTitle
	AttrFirstHeading
	AttrOutboundLinks
	AttrInitialContent
	AttrLimitedBody
	AttrContentLocation
	numAttributes
)

var attributeNames = [...]string{
	"status_code", "content_length", "content_type", "location", "etag", "last_modified",
	"cookie_names", "word_count", "line_count", "page_title", "first_heading",
	"outbound_links", "initial_content", "limited_body", "content_location",
}

func (a Attribute) String() string {
	if a < 0 || a >= numAttributes {
		return "unknown"
	}
	return attributeNames[a]
}

const (
	initialContentSize = 100
	limitedBodySize    = 1024
)

// Signature holds the value of every attribute for one response.
type Signature [numAttributes]string

// SignatureOf extracts the attributes of r.
func SignatureOf(r *models.Response) Signature {
	var s Signature
	body := r.Body

	s[AttrStatusCode] = strconv.Itoa(r.StatusCode)
	s[AttrContentLength] = strconv.Itoa(r.Length)
	s[AttrContentType] = r.Headers.Get("Content-Type")
	s[AttrLocation] = r.Headers.Get("Location")
	s[AttrETag] = r.Headers.Get("ETag")
	s[AttrLastModified] = r.Headers.Get("Last-Modified")
	s[AttrContentLocation] = r.Headers.Get("Content-Location")
	s[AttrCookieNames] = cookieNames(r.Headers)

	text := string(body)
	s[AttrWordCount] = strconv.Itoa(len(strings.Fields(text)))
	s[AttrLineCount] = strconv.Itoa(strings.Count(text, "\n"))

	page := models.ParsePage(body)
	s[AttrPageTitle] = page.Title
	s[AttrFirstHeading] = page.FirstHeading
	s[AttrOutboundLinks] = strconv.Itoa(page.Links)

	s[AttrInitialContent] = digest(body, initialContentSize)
	s[AttrLimitedBody] = digest(body, limitedBodySize)
	return s
}

func cookieNames(h http.Header) string {
	var names []string
	for _, c := range (&http.Response{Header: h}).Cookies() {
		names = append(names, c.Name)
	}
	slices.Sort(names)
	return strings.Join(names, ",")
}

func digest(body []byte, limit int) string {
	if len(body) > limit {
		body = body[:limit]
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:8])
}

// Analyzer learns which attributes stay constant across a set of samples.
// The first sample fixes the reference values; every later sample removes
// the attributes that differ from them.
type Analyzer struct {
	base      Signature
	invariant [numAttributes]bool
	samples   int
}

func (a *Analyzer) Update(r *models.Response) {
	s := SignatureOf(r)
	if a.samples == 0 {
		a.base = s
		for i := range a.invariant {
			a.invariant[i] = true
		}
	} else {
		for i := range a.invariant {
			if a.invariant[i] && s[i] != a.base[i] {
				a.invariant[i] = false
			}
		}
	}
	a.samples++
}

// Similar reports whether r matches every invariant attribute. With no
// invariant attributes left everything is similar.
func (a *Analyzer) Similar(r *models.Response) bool {
	s := SignatureOf(r)
	for i, inv := range a.invariant {
		if inv && s[i] != a.base[i] {
			return false
		}
	}
	return true
}

// Invariant lists the attributes still considered stable.
func (a *Analyzer) Invariant() []Attribute {
	var out []Attribute
	for i, inv := range a.invariant {
		if inv {
			out = append(out, Attribute(i))
		}
	}
	return out
}

func (a *Analyzer) Samples() int { return a.samples }

func attrStrings(attrs []Attribute) []string {
	out := make([]string, len(attrs))
	for i, a := range attrs {
		out[i] = a.String()
	}
	return out
}

// Baselines keeps one Analyzer per learn group and gates classification
// until every queued baseline of a group has completed.
type Baselines struct {
	mu        sync.Mutex
	analyzers map[int]*Analyzer
	pending   map[int]int
	deferred  map[int][]*models.Response
}

func NewBaselines() *Baselines {
	return &Baselines{
		analyzers: make(map[int]*Analyzer),
		pending:   make(map[int]int),
		deferred:  make(map[int][]*models.Response),
	}
}

// Expect registers a queued baseline task for group.
func (b *Baselines) Expect(group int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[group]++
}

// Learn feeds a completed baseline response into its group. Failed
// baselines only count down. When the group's last pending baseline
// completes, complete is true and the responses held back by Classify are
// returned, classified.
func (b *Baselines) Learn(group int, r *models.Response, ok bool) (released []*models.Response, complete bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ok {
		a := b.analyzers[group]
		if a == nil {
			a = &Analyzer{}
			b.analyzers[group] = a
		}
		a.Update(r)
	}
	if b.pending[group] > 0 {
		b.pending[group]--
	}
	if b.pending[group] > 0 {
		return nil, false
	}

	held := b.deferred[group]
	delete(b.deferred, group)
	for _, d := range held {
		d.Interesting = b.classifyLocked(group, d)
	}
	return held, true
}

// Classify sets r.Interesting for a fuzzed response of group. It returns false when
// the group still has baselines in flight; r is then held and handed back
// by the Learn call that completes the group.
func (b *Baselines) Classify(group int, r *models.Response) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending[group] > 0 {
		b.deferred[group] = append(b.deferred[group], r)
		return false
	}
	r.Interesting = b.classifyLocked(group, r)
	return true
}

func (b *Baselines) classifyLocked(group int, r *models.Response) bool {
	if group == 0 {
		return true
	}
	a := b.analyzers[group]
	if a == nil || a.samples == 0 {
		return true
	}
	return !a.Similar(r)
}

// Analyzer returns a copy of the analyzer of group. ok is false when the
// group has learned nothing.
func (b *Baselines) Analyzer(group int) (a Analyzer, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p := b.analyzers[group]; p != nil {
		return *p, true
	}
	return Analyzer{}, false
}

// Drain returns every response still held, classified against whatever
// was learned. Run calls it once its workers have exited, since a stopped
// run can leave baselines outstanding.
func (b *Baselines) Drain() []*models.Response {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*models.Response
	for g, held := range b.deferred {
		for _, d := range held {
			d.Interesting = b.classifyLocked(g, d)
			out = append(out, d)
		}
		delete(b.deferred, g)
	}
	return out
}
