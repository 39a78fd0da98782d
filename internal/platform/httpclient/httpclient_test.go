package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDo_UsesTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	c := New(Options{Timeout: 50 * time.Millisecond})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/fast", nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("fast request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/slow", nil)
	if resp, err := c.Do(req); err == nil {
		resp.Body.Close()
		t.Fatalf("expected timeout error")
	}
}

type countingTransport struct {
	calls int
}

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	c.calls++
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Header: http.Header{}}, nil
}

func TestNew_CustomTransportAndDefaultTimeout(t *testing.T) {
	tr := &countingTransport{}
	c := New(Options{Transport: tr})
	if c.http.Timeout != DefaultTimeout {
		t.Fatalf("expected default timeout, got %s", c.http.Timeout)
	}

	req, _ := http.NewRequest(http.MethodGet, "http://clinic.invalid/x", nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()
	if tr.calls != 1 {
		t.Fatalf("expected custom transport used, got %d calls", tr.calls)
	}
}
