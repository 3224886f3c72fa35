// FILENAME: internal/engine/h3_client.go
package engine

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"go.uber.org/zap"

	"github.com/xkilldash9x/mutafuzz/internal/config"
)

type h3ClientImpl struct {
	transport *http3.Transport
	client    *http.Client
	logger    *zap.Logger
}

// NewH3Client returns a client that speaks HTTP/3 over QUIC. Plain http
// targets fail at request time since QUIC always runs over TLS.
func NewH3Client(conf ClientConfig, logger *zap.Logger) (HTTPClient, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: conf.InsecureSkipVerify,
		NextProtos:         []string{http3.NextProtoH3},
	}

	idle := conf.IdleConnTimeout
	if idle == 0 {
		idle = config.IdleConnTimeout
	}
	qConf := &quic.Config{
		KeepAlivePeriod: config.H3KeepAlive,
		MaxIdleTimeout:  idle,
		// EnableDatagrams can be set if needed, but off by default reduces handshake overhead
		EnableDatagrams: false,
	}

	// Create a dedicated Transport for isolation
	tr := &http3.Transport{
		TLSClientConfig: tlsConfig,
		QUICConfig:      qConf,
		// Disable compression so response lengths stay byte-accurate
		DisableCompression: true,
	}

	return &h3ClientImpl{
		transport: tr,
		client: &http.Client{
			Transport:     tr,
			Timeout:       0, // Timeouts handled by task context
			CheckRedirect: redirectPolicy(conf.FollowRedirects),
		},
		logger: logger,
	}, nil
}

func (c *h3ClientImpl) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		c.logger.Debug("h3 request on non-https target", zap.String("scheme", req.URL.Scheme))
	}
	req = req.WithContext(ctx)
	return c.client.Do(req)
}

func (c *h3ClientImpl) Close() error {
	c.transport.CloseIdleConnections()
	return c.transport.Close()
}
