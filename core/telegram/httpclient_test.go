package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestRetryTransportRetriesDialErrors(t *testing.T) {
	calls := 0
	rt := &retryTransport{
		base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return nil, &net.OpError{Op: "dial", Err: errors.New("refused")}
			}
			body, _ := io.ReadAll(r.Body)
			if string(body) != "chat_id=1" {
				t.Errorf("body on attempt %d = %q", calls, body)
			}
			return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
		}),
		maxRetries: 3,
		backoff:    time.Millisecond,
	}
	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", strings.NewReader("chat_id=1"))
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	resp.Body.Close()
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryTransportStopsOnPermanentError(t *testing.T) {
	calls := 0
	rt := &retryTransport{
		base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("tls: bad certificate")
		}),
		maxRetries: 3,
		backoff:    time.Millisecond,
	}
	req, _ := http.NewRequest(http.MethodGet, "https://api.telegram.org", nil)
	if _, err := rt.RoundTrip(req); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestBuildHTTPClientProxy(t *testing.T) {
	if _, err := BuildHTTPClient("socks5h://127.0.0.1:9050", 10*time.Second); err != nil {
		t.Fatalf("socks5h proxy: %v", err)
	}
	if _, err := BuildHTTPClient("ftp://127.0.0.1:21", 0); err == nil {
		t.Fatal("expected unsupported proxy scheme to fail")
	}
	c, err := BuildHTTPClient("", 10*time.Second)
	if err != nil {
		t.Fatalf("direct: %v", err)
	}
	if c.Timeout != 40*time.Second {
		t.Fatalf("timeout = %s", c.Timeout)
	}
}
