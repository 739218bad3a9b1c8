// Package amplitudetest provides an in-process fake of the Amplitude
// ingestion and dashboard APIs for tests.
//
// Events sent to the fake are kept in memory, so dashboard queries such as
// user search or event segmentation answer from what was tracked:
//
//	srv := amplitudetest.NewServer(amplitudetest.Config{APIKey: "key", SecretKey: "secret"})
//	defer srv.Close()
//
//	client, _ := amplitude.NewClientWithHTTPClient("key", &amplitude.Config{
//	    SecretKey:     "secret",
//	    TokenEndpoint: srv.URL,
//	}, srv.HTTPClient())
package amplitudetest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
)

// Server is a running fake reachable over HTTP.
type Server struct {
	*httptest.Server
	*Handler
}

// NewServer starts a fake on a local port. Call Close when done.
func NewServer(config Config) *Server {
	h := NewHandler(config)
	return &Server{
		Server:  httptest.NewServer(h),
		Handler: h,
	}
}

// HTTPClient returns a client that sends every request to the fake,
// whatever host it names. Use it so the fixed dashboard endpoint reaches the fake.
func (s *Server) HTTPClient() *http.Client {
	target, _ := url.Parse(s.URL)
	return &http.Client{
		Transport: &rewriteTransport{target: target, next: s.Client().Transport},
	}
}

type rewriteTransport struct {
	target *url.URL
	next   http.RoundTripper
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.Host = t.target.Host
	return t.next.RoundTrip(out)
}
