package engine

import (
	"net/http"
	"testing"
	"time"
)

func TestNewProxyClient(t *testing.T) {
	c, err := NewProxyClient(5*time.Second, "http://proxy.local:8080", "http://secure-proxy.local:8443")
	if err != nil {
		t.Fatalf("NewProxyClient() error = %v", err)
	}
	if c.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", c.Timeout)
	}
	proxy := c.Transport.(*http.Transport).Proxy

	req, _ := http.NewRequest(http.MethodGet, "https://www.youtube.com/watch?v=x", nil)
	u, err := proxy(req)
	if err != nil || u == nil || u.Host != "secure-proxy.local:8443" {
		t.Errorf("https proxy = %v, %v", u, err)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://example.com/", nil)
	u, err = proxy(req)
	if err != nil || u == nil || u.Host != "proxy.local:8080" {
		t.Errorf("http proxy = %v, %v", u, err)
	}
}

func TestNewProxyClientDirect(t *testing.T) {
	c, err := NewProxyClient(time.Second, "", "")
	if err != nil {
		t.Fatalf("NewProxyClient() error = %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, "https://www.youtube.com/", nil)
	u, err := c.Transport.(*http.Transport).Proxy(req)
	if err != nil || u != nil {
		t.Errorf("expected direct connection, got %v, %v", u, err)
	}
}

func TestNewProxyClientInvalid(t *testing.T) {
	if _, err := NewProxyClient(time.Second, "not a url", ""); err == nil {
		t.Error("expected error for invalid proxy URL")
	}
}

func TestChromeHeaders(t *testing.T) {
	h := ChromeHeaders()

	required := []string{"accept", "accept-language", "user-agent"}
	for _, key := range required {
		if _, ok := h[key]; !ok {
			t.Errorf("ChromeHeaders() missing key %q", key)
		}
	}
	if RandomUserAgent() == "" {
		t.Error("RandomUserAgent() is empty")
	}
}
