package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Source is a remote file addressed by URL.
type Source struct {
	client *Client
	url    string
}

// NewSource binds a URL to a client.
func NewSource(c *Client, url string) *Source { return &Source{client: c, url: url} }

func (s *Source) String() string { return s.url }

// Open downloads the resource. Any non-2xx response is an error.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("httpds: GET %s: %s", s.url, resp.Status)
	}
	return resp.Body, nil
}

// Size reports the Content-Length of the resource via HEAD, or -1 when the
// server does not say.
func (s *Source) Size(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.url, nil)
	if err != nil {
		return -1, err
	}
	for k, vs := range s.client.headers {
		req.Header[k] = vs
	}
	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return -1, err
	}
	_ = resp.Body.Close()
	return resp.ContentLength, nil
}
