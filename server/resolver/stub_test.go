package resolver

import (
	"bytes"
	"io"
	"net/http"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/httpclient"
)

type route struct {
	status   int
	body     string
	location string
	cookies  []*http.Cookie
}

// routeTransport answers requests by exact URL and records what it saw.
// Unknown URLs get a 404.
type routeTransport struct {
	mu       sync.Mutex
	routes   map[string]route
	requests []*http.Request
	bodies   []string
}

func newRouteTransport(routes map[string]route) *routeTransport {
	return &routeTransport{routes: routes}
}

func (rt *routeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}

	rt.mu.Lock()
	rt.requests = append(rt.requests, req)
	rt.bodies = append(rt.bodies, string(body))
	r, ok := rt.routes[req.URL.String()]
	rt.mu.Unlock()

	if !ok {
		r = route{status: http.StatusNotFound}
	}
	header := http.Header{}
	if r.location != "" {
		header.Set("Location", r.location)
	}
	for _, c := range r.cookies {
		header.Add("Set-Cookie", c.String())
	}
	return &http.Response{
		StatusCode: r.status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader([]byte(r.body))),
		Request:    req,
	}, nil
}

func (rt *routeTransport) requestURLs() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	urls := make([]string, 0, len(rt.requests))
	for _, r := range rt.requests {
		urls = append(urls, r.URL.String())
	}
	return urls
}

func (rt *routeTransport) lastRequest() *http.Request {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(rt.requests) == 0 {
		return nil
	}
	return rt.requests[len(rt.requests)-1]
}

func (rt *routeTransport) lastBody() string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if len(rt.bodies) == 0 {
		return ""
	}
	return rt.bodies[len(rt.bodies)-1]
}

func (rt *routeTransport) client() *resty.Client {
	return httpclient.New(httpclient.Options{Name: "test", Transport: rt})
}
