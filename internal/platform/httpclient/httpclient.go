package httpclient

import (
	"net"
	"net/http"
	"time"
)

const DefaultTimeout = 10 * time.Second

// Client es el cliente HTTP saliente del proceso. Implementa Do, así el
// SDK de S3 lo acepta como transporte.
type Client struct {
	http *http.Client
}

type Options struct {
	Timeout   time.Duration
	Transport http.RoundTripper // opcional; default con keep-alive y timeouts de dial
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	tr := opts.Transport
	if tr == nil {
		tr = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          50,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: time.Second,
		}
	}
	return &Client{http: &http.Client{Timeout: timeout, Transport: tr}}
}

// Do cumple la interfaz HTTPClient del SDK de AWS.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}
