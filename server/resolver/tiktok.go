package resolver

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/httpclient"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

const (
	// DefaultTikTokMirror is the download mirror used to fetch watermark-free videos.
	DefaultTikTokMirror = "https://ttdownloader.com"

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

type mirrorSession struct {
	token   string
	cookies []*http.Cookie
}

// TikTokResolver resolves videos through a third-party download mirror.
type TikTokResolver struct {
	client *resty.Client
	mirror string
}

func NewTikTokResolver(client *resty.Client, mirror string) *TikTokResolver {
	if mirror == "" {
		mirror = DefaultTikTokMirror
	}
	return &TikTokResolver{
		client: client,
		mirror: strings.TrimRight(mirror, "/"),
	}
}

func (t *TikTokResolver) Platform() social.Platform {
	return social.TikTok
}

func (t *TikTokResolver) Resolve(ctx context.Context, match social.URLMatch, canonical social.CanonicalURL) (*social.ResolvedPost, error) {
	// The landing page fetch runs on its own worker; the search waits for its token.
	var session mirrorSession
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		session, err = t.openSession(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	videoURL, err := t.search(ctx, canonical.URL, session)
	if err != nil {
		return nil, err
	}

	return &social.ResolvedPost{
		Platform: social.TikTok,
		URL:      canonical.URL,
		Candidates: []social.MediaCandidate{{
			URL:      videoURL,
			MimeType: "video/mp4",
			Role:     social.RolePrimaryVideo,
			BaseName: TikTokBaseName(match.URL),
		}},
	}, nil
}

// openSession loads the mirror landing page to obtain its form token and
// session cookies.
func (t *TikTokResolver) openSession(ctx context.Context) (mirrorSession, error) {
	landing := t.mirror + "/"
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", browserUserAgent).
		Get(landing)
	if err != nil {
		return mirrorSession{}, errors.Wrapf(err, "failed to load %s", landing)
	}
	if resp.StatusCode() != 200 {
		return mirrorSession{}, &httpclient.StatusError{URL: landing, StatusCode: resp.StatusCode()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return mirrorSession{}, errors.Wrapf(ErrMalformedResponse, "%s: %s", landing, err.Error())
	}
	token := strings.TrimSpace(doc.Find("input#token").AttrOr("value", ""))
	if token == "" {
		return mirrorSession{}, missing("token", landing)
	}

	return mirrorSession{token: token, cookies: resp.Cookies()}, nil
}

// search submits the video link and returns the first absolute link of the
// result page.
func (t *TikTokResolver) search(ctx context.Context, videoURL string, session mirrorSession) (string, error) {
	endpoint := t.mirror + "/search/"
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeaders(map[string]string{
			"User-Agent":       browserUserAgent,
			"Accept":           "*/*",
			"Accept-Language":  "en-US,en;q=0.9",
			"Origin":           t.mirror,
			"Referer":          t.mirror + "/",
			"X-Requested-With": "XMLHttpRequest",
		}).
		SetCookies(session.cookies).
		SetFormData(map[string]string{
			"url":    videoURL,
			"format": "",
			"token":  session.token,
		}).
		Post(endpoint)
	if err != nil {
		return "", errors.Wrapf(err, "failed to query %s", endpoint)
	}
	if resp.StatusCode() != 200 {
		return "", &httpclient.StatusError{URL: endpoint, StatusCode: resp.StatusCode()}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return "", errors.Wrapf(ErrMalformedResponse, "%s: %s", endpoint, err.Error())
	}

	var href string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := strings.TrimSpace(s.AttrOr("href", ""))
		lower := strings.ToLower(link)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			href = link
			return false
		}
		return true
	})
	if href == "" {
		return "", missing("download link", endpoint)
	}
	return href, nil
}

// TikTokBaseName derives a stable file name from the link, since the mirror
// exposes no video id.
func TikTokBaseName(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:16]
}
