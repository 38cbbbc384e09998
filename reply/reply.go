package reply

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"
)

// DefaultTimeout is strictly below the host execution budget so a hung reply
// cannot consume the whole deadline.
const DefaultTimeout = 25 * time.Second

// Cache-Control max-age values, in seconds
const (
	CacheMaxAgeDay          = 60 * 60 * 24
	CacheMaxAgeWeek         = 60 * 60 * 24 * 7
	CacheMaxAgeThreeSeconds = 3
)

// GetDoFunc = signature for Do function
type GetDoFunc func(req *http.Request) (*http.Response, error)

// Sender delivers webhook replies. Each request uses its own transport so a
// reused warm process never hits a stale session.
type Sender struct {
	// DoFunc overrides the HTTP call, used in tests
	DoFunc GetDoFunc

	timeout   time.Duration
	extraRoot *x509.Certificate
}

// Option configures a Sender
type Option func(*Sender)

// WithTimeout overrides the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(s *Sender) {
		s.timeout = timeout
	}
}

// WithExtraRootCA pins an additional trust anchor next to the system roots,
// for sandboxed contexts where the system store may be unavailable. Standard
// validation still applies.
func WithExtraRootCA(cert *x509.Certificate) Option {
	return func(s *Sender) {
		s.extraRoot = cert
	}
}

// NewSender constructs a new Sender
func NewSender(opts ...Option) *Sender {
	s := &Sender{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sender) rootCAs() *x509.CertPool {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		glog.Warningf("System cert pool unavailable: %v", err)
		pool = x509.NewCertPool()
	}
	if s.extraRoot != nil {
		pool.AddCert(s.extraRoot)
	}
	return pool
}

func (s *Sender) do(req *http.Request) (*http.Response, error) {
	if s.DoFunc != nil {
		return s.DoFunc(req)
	}

	client := &http.Client{
		Timeout: s.timeout,
		Transport: &http.Transport{
			DisableKeepAlives: true,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
				RootCAs:    s.rootCAs(),
			},
		},
	}
	defer client.CloseIdleConnections()

	return client.Do(req)
}

// Post delivers body to url and reports whether the caller answered with
// HTTP 200. Transport errors and other statuses yield false, never a panic.
// A maxAge above zero adds a Cache-Control hint to the request.
func (s *Sender) Post(ctx context.Context, url string, body []byte, maxAge int) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		glog.Warningf("Invalid reply url: %v", err)
		return false
	}

	req.Header.Set("Content-Type", "application/json")
	if maxAge > 0 {
		req.Header.Set("Cache-Control", fmt.Sprintf("max-age=%d", maxAge))
	}

	resp, err := s.do(req)
	if err != nil {
		glog.Warningf("Reply to %s failed: %v", url, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		glog.Warningf("Reply to %s got status %d", url, resp.StatusCode)
		return false
	}

	return true
}
