package http

import (
	"crypto/tls"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// UserAgent provides the User-Agent header of outgoing requests
type UserAgent struct {
	fixed  string
	agents []string
}

// NewUserAgent returns fixed when it is set, or a random browser agent
func NewUserAgent(fixed string) *UserAgent {
	return &UserAgent{
		fixed: fixed,
		agents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		},
	}
}

// Get returns the agent for one request
func (ua *UserAgent) Get() string {
	if ua.fixed != "" {
		return ua.fixed
	}
	return ua.agents[rand.Intn(len(ua.agents))]
}

// NewClient creates the client shared by all workers. Certificates are not
// verified and connections are not reused across hosts.
func NewClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 0,
		}).DialContext,
		TLSHandshakeTimeout:   timeout,
		IdleConnTimeout:       timeout,
		ResponseHeaderTimeout: timeout,
		DisableKeepAlives:     true,
		MaxIdleConns:          0,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}
