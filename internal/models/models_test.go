// FILENAME: internal/models/models_test.go
package models_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xkilldash9x/mutafuzz/internal/models"
)

func TestCapturedRequest_Clone(t *testing.T) {
	original := &models.CapturedRequest{
		Method:   "POST",
		URL:      "http://example.com",
		Headers:  map[string]string{"Content-Type": "application/json", "X-ID": "123"},
		Body:     []byte(`{"key":"value"}`),
		Protocol: "h2",
	}

	clone := original.Clone()

	if clone.Method != original.Method {
		t.Errorf("Method mismatch: %s", clone.Method)
	}
	if clone.Headers["Content-Type"] != "application/json" {
		t.Error("Header mismatch")
	}
	if string(clone.Body) != string(original.Body) {
		t.Error("Body mismatch")
	}

	clone.Headers["X-ID"] = "999"
	clone.Body[2] = 'X'
	clone.Method = "GET"

	if original.Headers["X-ID"] == "999" {
		t.Error("Clone failed: Modifying clone header affected original")
	}
	if original.Body[2] == 'X' {
		t.Error("Clone failed: Modifying clone body affected original")
	}
	if original.Method == "GET" {
		t.Error("Clone failed: Modifying clone method affected original")
	}

	var nilReq *models.CapturedRequest
	if nilReq.Clone() != nil {
		t.Error("Cloning nil should return nil")
	}
}

func TestCapturedRequest_WithHelpers(t *testing.T) {
	base := &models.CapturedRequest{
		Method:  "GET",
		URL:     "http://example.com/a",
		Headers: map[string]string{"user-agent": "x"},
	}

	t.Run("WithHeader replaces case-insensitively", func(t *testing.T) {
		r := base.WithHeader("User-Agent", "fuzzer")
		if len(r.Headers) != 1 || r.Headers["User-Agent"] != "fuzzer" {
			t.Errorf("unexpected headers: %v", r.Headers)
		}
		if base.Headers["user-agent"] != "x" {
			t.Error("original mutated")
		}
	})

	t.Run("WithoutHeader", func(t *testing.T) {
		r := base.WithoutHeader("USER-AGENT")
		if _, ok := r.Header("user-agent"); ok {
			t.Error("header still present")
		}
	})

	t.Run("WithMethod and WithBody", func(t *testing.T) {
		r := base.WithMethod("POST").WithBody([]byte("a=1"))
		if r.Method != "POST" || string(r.Body) != "a=1" {
			t.Errorf("got %s %q", r.Method, r.Body)
		}
		if base.Method != "GET" || base.Body != nil {
			t.Error("original mutated")
		}
	})
}

func TestCapturedRequest_QueryParams(t *testing.T) {
	r := &models.CapturedRequest{URL: "http://example.com/p?id=1&name=bob&id=2&flag"}

	names, err := r.QueryParams()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(names, ",") != "id,name,flag" {
		t.Errorf("got %v", names)
	}

	injected, err := r.WithQueryParam("id", "<x y>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "http://example.com/p?id=%3Cx+y%3E&name=bob&id=%3Cx+y%3E&flag"
	if injected.URL != want {
		t.Errorf("got %s, want %s", injected.URL, want)
	}
	if r.URL != "http://example.com/p?id=1&name=bob&id=2&flag" {
		t.Error("original mutated")
	}

	if _, err := r.WithQueryParam("missing", "v"); err == nil {
		t.Error("expected error for missing parameter")
	}

	bad := &models.CapturedRequest{URL: "http://[::1"}
	if _, err := bad.QueryParams(); err == nil {
		t.Error("expected error for malformed URL")
	}
}

func TestNewResponse(t *testing.T) {
	t.Parallel()

	body := []byte("<html><title> Welcome </title><h1>Hi</h1></html>")
	res := models.NewResponse(1, 200, nil, body, time.Second, nil)

	if res.StatusCode != 200 {
		t.Errorf("Status mismatch: got %d, want 200", res.StatusCode)
	}
	if res.Length != len(body) {
		t.Errorf("Length mismatch: got %d", res.Length)
	}
	if res.BodyHash == "" || res.BodyHash == "empty" {
		t.Error("Hash generation failed")
	}
	if res.Title != "Welcome" {
		t.Errorf("Title mismatch: %q", res.Title)
	}
	if res.Headers == nil {
		t.Error("Headers should never be nil")
	}

	err := errors.New("fail")
	resErr := models.NewResponse(2, 0, nil, nil, 0, err)
	if resErr.Error != err {
		t.Error("Error not preserved in result")
	}
	if resErr.BodyHash != "empty" {
		t.Errorf("Hash should be 'empty' on error, got '%s'", resErr.BodyHash)
	}
	if !strings.Contains(resErr.String(), "ERR") {
		t.Errorf("String representation missing error indicator: %s", resErr.String())
	}

	longBody := []byte(strings.Repeat("A", 100))
	resLong := models.NewResponse(3, 200, nil, longBody, 0, nil)
	if len(resLong.BodySnippet) != 50 {
		t.Errorf("Snippet not truncated correctly: got len %d, want 50", len(resLong.BodySnippet))
	}
}

func TestResponse_TextAbsentBody(t *testing.T) {
	res := models.NewResponse(1, 204, nil, nil, 0, nil)
	if res.Text() != "" {
		t.Errorf("absent body should read as empty, got %q", res.Text())
	}
	var nilRes *models.Response
	if nilRes.Text() != "" {
		t.Error("nil response should read as empty")
	}
}

func TestParsePage(t *testing.T) {
	p := models.ParsePage([]byte(`<html><head><title>T</title></head>
<body><h2> Head </h2><a href="/a">a</a><a name="x">b</a><a href="/c">c</a><h1>second</h1></body></html>`))
	if p.Title != "T" || p.FirstHeading != "Head" || p.Links != 2 {
		t.Errorf("unexpected page: %+v", p)
	}

	if got := models.ParsePage([]byte("not html at all")); got.Title != "" || got.Links != 0 {
		t.Errorf("plain text should parse to empty page: %+v", got)
	}
}
