// FILENAME: internal/engine/transport.go
package engine

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/mutafuzz/internal/config"
)

// -- Interfaces --

// HTTPClient is the transport contract the engine drives. One client is
// shared by every worker of a run.
type HTTPClient interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
	Close() error
}

// ClientConfig carries the transport settings derived from Options.
type ClientConfig struct {
	Protocol           string // h1, h2 or h3
	FollowRedirects    bool
	InsecureSkipVerify bool
	MaxConnsPerHost    int
	IdleConnTimeout    time.Duration
}

// ClientFactory creates protocol-specific clients.
// This abstract factory composition root enables the injection of strict mocks during unit testing.
type ClientFactory interface {
	NewClient(conf ClientConfig, logger *zap.Logger) (HTTPClient, error)
}

// -- Real Implementation --

// RealClientFactory builds net/http clients for h1 and h2 and quic-go clients for h3.
type RealClientFactory struct{}

func (f *RealClientFactory) NewClient(conf ClientConfig, logger *zap.Logger) (HTTPClient, error) {
	switch conf.Protocol {
	case "", "h1", "h2":
		return NewStdClient(conf, logger), nil
	case "h3":
		return NewH3Client(conf, logger)
	}
	return nil, fmt.Errorf("unsupported protocol: %s", conf.Protocol)
}

type stdClient struct {
	transport *http.Transport
	client    *http.Client
	logger    *zap.Logger
}

// NewStdClient returns a net/http client. HTTP/2 is only negotiated when the
// protocol is h2.
func NewStdClient(conf ClientConfig, logger *zap.Logger) HTTPClient {
	idle := conf.IdleConnTimeout
	if idle == 0 {
		idle = config.IdleConnTimeout
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: conf.InsecureSkipVerify},
		MaxIdleConns:        config.MaxIdleConns,
		MaxConnsPerHost:     conf.MaxConnsPerHost,
		MaxIdleConnsPerHost: conf.MaxConnsPerHost,
		IdleConnTimeout:     idle,
		// Lengths are compared across responses, so keep bodies as sent
		DisableCompression: true,
		ForceAttemptHTTP2:  conf.Protocol == "h2",
	}
	if conf.Protocol != "h2" {
		// A non-nil empty map disables the h2 upgrade
		tr.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	}

	return &stdClient{
		transport: tr,
		client: &http.Client{
			Transport:     tr,
			Timeout:       0, // Timeouts handled by task context
			CheckRedirect: redirectPolicy(conf.FollowRedirects),
		},
		logger: logger,
	}
}

func (c *stdClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(ctx))
}

func (c *stdClient) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

func redirectPolicy(follow bool) func(*http.Request, []*http.Request) error {
	if follow {
		return nil
	}
	return func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
}
