package engine

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// NewHTTPClient returns a client with a bounded timeout for a single
// outbound call. Redirects are capped at 10.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     60 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return nil
		},
	}
}

// NewProxyClient returns a client that routes plain-HTTP requests through
// httpProxy and HTTPS requests through httpsProxy. An empty proxy URL means
// a direct connection for that scheme.
func NewProxyClient(timeout time.Duration, httpProxy, httpsProxy string) (*http.Client, error) {
	httpURL, err := parseProxy(httpProxy)
	if err != nil {
		return nil, fmt.Errorf("http proxy: %w", err)
	}
	httpsURL, err := parseProxy(httpsProxy)
	if err != nil {
		return nil, fmt.Errorf("https proxy: %w", err)
	}

	client := NewHTTPClient(timeout)
	client.Transport.(*http.Transport).Proxy = func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" {
			return httpsURL, nil
		}
		return httpURL, nil
	}
	return client, nil
}

func parseProxy(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL %q", raw)
	}
	return u, nil
}
