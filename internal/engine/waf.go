// FILENAME: internal/engine/waf.go
package engine

import (
	"regexp"
	"slices"
	"strings"

	"github.com/xkilldash9x/mutafuzz/internal/models"
)

// fingerprint recognizes one WAF vendor's block page. The header, body and
// status signals are combined by match.
type fingerprint struct {
	name   string
	header func(name, value string) bool
	body   []string
	status []int
	match  func(header, body, status bool) bool
}

var cloudflareID = regexp.MustCompile(`id=["']?cf-[\w-]+["']?`)

var fingerprints = []fingerprint{
	{
		name: "cloudflare",
		header: func(n, v string) bool {
			return strings.Contains(n, "cf-") || strings.Contains(n, "cloudflare") || (n == "server" && strings.Contains(v, "cloudflare"))
		},
		body:   []string{"cloudflare", "ray id", "checking your browser", "security check to access", "attention required", "challenge-platform"},
		status: []int{403, 503, 421},
		match:  func(h, b, s bool) bool { return h && s && b },
	},
	{
		name: "akamai",
		header: func(n, v string) bool {
			return strings.Contains(n, "akamai") || strings.Contains(n, "x-cache-remote") || (n == "server" && strings.Contains(v, "akamai"))
		},
		body:   []string{"akamai", "reference #", "access denied", "request blocked", "security incident id", "your request has been blocked"},
		status: []int{403},
		match:  func(h, b, s bool) bool { return h && (b || s) },
	},
	{
		name: "imperva",
		header: func(n, v string) bool {
			return strings.Contains(n, "incap_ses") || strings.Contains(n, "incapsula") || strings.Contains(n, "visid_incap") ||
				n == "x-iinfo" || strings.Contains(n, "x-cdn-pop") ||
				(n == "set-cookie" && (strings.Contains(v, "incap_ses") || strings.Contains(v, "visid_incap"))) ||
				(n == "server" && (strings.Contains(v, "incapsula") || strings.Contains(v, "imperva")))
		},
		body:   []string{"incapsula", "imperva", "coming from possibly suspicious activity", "_incapsula_resource", "blocked because of suspicious activity", "please solve this captcha"},
		status: []int{403, 406, 503},
		match:  func(h, b, s bool) bool { return h && (s || b) },
	},
	{
		name: "sucuri",
		header: func(n, v string) bool {
			return strings.Contains(n, "sucuri") || (n == "server" && strings.Contains(v, "sucuri"))
		},
		body:   []string{"sucuri", "access denied - sucuri website firewall", "sucuri website firewall - cloudproxy", "blocked by the website owner via sucuri"},
		status: []int{403},
		match:  func(h, b, s bool) bool { return h && (s || b) },
	},
	{
		name: "f5",
		header: func(n, v string) bool {
			return strings.Contains(n, "f5") || strings.Contains(n, "bigip") || n == "x-hw" ||
				(n == "set-cookie" && strings.Contains(v, "bigipserver")) ||
				(n == "server" && strings.Contains(v, "bigip"))
		},
		body:   []string{"the requested url was rejected", "request rejected", "security incident id"},
		status: []int{403, 501},
		match:  func(h, b, s bool) bool { return h && (s || b) },
	},
	{
		name: "barracuda",
		header: func(n, v string) bool {
			return strings.Contains(n, "barracuda") || (n == "set-cookie" && strings.Contains(v, "barracuda_")) ||
				(n == "server" && strings.Contains(v, "barracuda"))
		},
		body:   []string{"barracuda", "you are attempting to access a forbidden site", "you were automatically blocked", "barracuda web application firewall", "barracuda networks"},
		status: []int{403, 503},
		match:  func(h, b, s bool) bool { return h || (s && b) },
	},
	{
		name: "aws",
		header: func(n, v string) bool {
			return n == "x-amz-id" || n == "x-amz-request-id" || n == "x-amz-cf-id" ||
				strings.Contains(n, "awswaf") ||
				(n == "server" && (strings.Contains(v, "awselb") || strings.Contains(v, "amazon")))
		},
		body:   []string{"request blocked", "blocked by waf"},
		status: []int{403},
		match:  func(h, b, s bool) bool { return h && (s || b) },
	},
	{
		name: "azure",
		header: func(n, v string) bool {
			return strings.Contains(n, "azure") || strings.Contains(n, "msedge") || n == "x-ms-request-id" ||
				(n == "server" && strings.Contains(v, "microsoft"))
		},
		body:   []string{"front door", "application gateway", "the request is blocked"},
		status: []int{403},
		match:  func(h, b, s bool) bool { return h && (s || b) },
	},
	{
		name: "generic",
		header: func(n, _ string) bool {
			return strings.Contains(n, "waf") || strings.Contains(n, "firewall") || strings.Contains(n, "security") ||
				n == "x-cdn" || n == "x-firewall-protection"
		},
		body: []string{"web application firewall", "blocked for security reasons", "suspicious activity", "bot protection",
			"captcha", "unusual traffic", "automated requests", "rate limit", "rate exceeded", "too many requests",
			"ddos protection", "browser verification", "browser check"},
		status: []int{403, 503},
		match:  func(h, b, s bool) bool { return b && (h || s) },
	},
}

// IsBlocked reports whether a response looks like a WAF block page or rate
// limiting. It returns the matching vendor name.
func IsBlocked(r *models.Response) (string, bool) {
	if r == nil || r.StatusCode == 0 {
		return "", false
	}
	if r.StatusCode == 429 {
		return "rate-limit", true
	}

	body := strings.ToLower(r.Text())
	for _, fp := range fingerprints {
		header := false
		for name, values := range r.Headers {
			n := strings.ToLower(name)
			for _, v := range values {
				if fp.header(n, strings.ToLower(v)) {
					header = true
					break
				}
			}
			if header {
				break
			}
		}
		bodyHit := slices.ContainsFunc(fp.body, func(p string) bool { return strings.Contains(body, p) })
		if fp.name == "cloudflare" && !bodyHit {
			bodyHit = cloudflareID.MatchString(body)
		}
		if fp.match(header, bodyHit, slices.Contains(fp.status, r.StatusCode)) {
			return fp.name, true
		}
	}
	return "", false
}
