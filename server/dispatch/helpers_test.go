package dispatch_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/dispatch"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/dispatch/mocks"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/httpclient"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/media"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/resolver"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

type upstream struct {
	status int
	body   string
}

// upstreamTransport routes on scheme, host and path, ignoring the query.
type upstreamTransport struct {
	mu     sync.Mutex
	routes map[string]upstream
	hits   []string
}

func (u *upstreamTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	key := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path

	u.mu.Lock()
	u.hits = append(u.hits, key)
	r, ok := u.routes[key]
	u.mu.Unlock()

	if !ok {
		r = upstream{status: http.StatusNotFound}
	}
	return &http.Response{
		StatusCode: r.status,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewReader([]byte(r.body))),
		Request:    req,
	}, nil
}

func (u *upstreamTransport) requested() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.hits...)
}

type logEntry struct {
	level string
	msg   string
	kv    []any
}

func (e logEntry) value(key string) any {
	for i := 0; i+1 < len(e.kv); i += 2 {
		if e.kv[i] == key {
			return e.kv[i+1]
		}
	}
	return nil
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, kv: kv})
}

func (l *recordingLogger) LogDebug(msg string, kv ...any) { l.add("debug", msg, kv) }
func (l *recordingLogger) LogInfo(msg string, kv ...any)  { l.add("info", msg, kv) }
func (l *recordingLogger) LogWarn(msg string, kv ...any)  { l.add("warn", msg, kv) }
func (l *recordingLogger) LogError(msg string, kv ...any) { l.add("error", msg, kv) }

func (l *recordingLogger) level(level string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

type fakeInstagram map[string]*resolver.InstagramPost

func (f fakeInstagram) FetchPost(_ context.Context, shortcode string) (*resolver.InstagramPost, error) {
	post, ok := f[shortcode]
	if !ok {
		return nil, &httpclient.StatusError{URL: "instagram:" + shortcode, StatusCode: http.StatusNotFound}
	}
	return post, nil
}

type panickingResolver struct {
	platform social.Platform
}

func (p panickingResolver) Platform() social.Platform { return p.platform }

func (p panickingResolver) Resolve(context.Context, social.URLMatch, social.CanonicalURL) (*social.ResolvedPost, error) {
	panic("upstream shape drift")
}

type harness struct {
	upstream   *upstreamTransport
	publisher  *mocks.MockPublisher
	logger     *recordingLogger
	dispatcher *dispatch.Dispatcher
}

// newHarness wires the real matcher, canonicalizer, resolvers and fetcher
// against fake upstreams. Extra resolvers replace the default ones.
func newHarness(t *testing.T, routes map[string]upstream, instagram fakeInstagram, extra ...resolver.Resolver) *harness {
	t.Helper()

	h := &harness{
		upstream:  &upstreamTransport{routes: routes},
		publisher: mocks.NewMockPublisher(gomock.NewController(t)),
		logger:    &recordingLogger{},
	}
	client := httpclient.New(httpclient.Options{Name: "test", Transport: h.upstream})

	resolvers := []resolver.Resolver{
		resolver.NewYouTubeResolver(client),
		resolver.NewInstagramResolver(instagram),
		resolver.NewRedditResolver(client, ""),
		resolver.NewTikTokResolver(client, "https://tt.test"),
	}
	resolvers = append(resolvers, extra...)

	h.dispatcher = dispatch.New(
		social.NewMatcher(),
		resolver.NewCanonicalizer(client),
		media.NewFetcher(client),
		h.publisher,
		h.logger,
		resolvers...,
	)
	return h
}

func textMessage(body string) dispatch.Message {
	return dispatch.Message{
		ID:        "post1",
		ChannelID: "channel1",
		SenderID:  "user1",
		Kind:      dispatch.KindText,
		Body:      body,
	}
}

func only(platform social.Platform, pc dispatch.PlatformConfig) dispatch.Config {
	pc.Enabled = true
	return dispatch.Config{Platforms: map[social.Platform]dispatch.PlatformConfig{platform: pc}}
}

func redditListing(post string) string {
	return `[{"kind":"Listing","data":{"children":[{"kind":"t3","data":` + post + `}]}}]`
}
