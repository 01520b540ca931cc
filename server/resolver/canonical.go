package resolver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/httpclient"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

const youtubeOEmbedURL = "https://www.youtube.com/oembed"

// Canonicalizer normalizes matched links before they are resolved.
type Canonicalizer struct {
	reddit *resty.Client
}

// NewCanonicalizer creates a canonicalizer. The client is used to follow
// Reddit share link redirects.
func NewCanonicalizer(reddit *resty.Client) *Canonicalizer {
	return &Canonicalizer{
		reddit: reddit,
	}
}

// Canonicalize returns the normalized form of a match.
func (c *Canonicalizer) Canonicalize(ctx context.Context, match social.URLMatch) (social.CanonicalURL, error) {
	switch match.Platform {
	case social.Reddit:
		return c.canonicalReddit(ctx, match)
	case social.YouTube:
		return social.CanonicalURL{
			Platform:  social.YouTube,
			URL:       match.URL,
			LookupURL: YouTubeOEmbedURL(match.URL),
		}, nil
	case social.Instagram, social.TikTok:
		return social.CanonicalURL{Platform: match.Platform, URL: match.URL}, nil
	}
	return social.CanonicalURL{}, errors.Wrapf(ErrUnsupported, "platform %q", match.Platform)
}

func (c *Canonicalizer) canonicalReddit(ctx context.Context, match social.URLMatch) (social.CanonicalURL, error) {
	permalink := stripQuery(match.URL)

	if match.Reddit != nil && match.Reddit.Kind == "s" {
		// Share links redirect to the permalink, which may redirect once more.
		for hop := 0; hop < 2; hop++ {
			target, err := c.followRedirects(ctx, permalink)
			if err != nil {
				return social.CanonicalURL{}, err
			}
			permalink = stripQuery(target)
		}
	}

	return social.CanonicalURL{
		Platform:  social.Reddit,
		URL:       permalink,
		LookupURL: RedditListingURL(permalink),
	}, nil
}

// followRedirects requests rawURL and returns the final URL after redirects.
func (c *Canonicalizer) followRedirects(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.reddit.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve redirect for %s", rawURL)
	}
	resp.RawBody().Close()

	if resp.StatusCode() != 200 {
		return "", &httpclient.StatusError{URL: rawURL, StatusCode: resp.StatusCode()}
	}
	return resp.RawResponse.Request.URL.String(), nil
}

// RedditListingURL builds the listing JSON endpoint for a Reddit permalink.
func RedditListingURL(permalink string) string {
	return escapePath(permalink) + ".json?limit=1"
}

// YouTubeOEmbedURL builds the oEmbed lookup for a YouTube link.
func YouTubeOEmbedURL(videoURL string) string {
	return youtubeOEmbedURL + "?format=json&url=" + url.QueryEscape(videoURL)
}

// stripQuery drops the query and the fragment.
func stripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// escapePath percent-encodes everything but unreserved characters, slashes
// and colons.
func escapePath(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isUnreserved(ch) || ch == '/' || ch == ':' {
			b.WriteByte(ch)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", ch)
	}
	return b.String()
}

func isUnreserved(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	case ch == '-', ch == '.', ch == '_', ch == '~':
		return true
	}
	return false
}
