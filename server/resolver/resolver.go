package resolver

import (
	"context"
	"encoding/json"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/httpclient"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

var (
	// ErrMissingField is returned when an upstream answer lacks a required field.
	ErrMissingField = errors.New("missing expected field")
	// ErrMalformedResponse is returned when an upstream answer cannot be decoded.
	ErrMalformedResponse = errors.New("malformed upstream response")
	// ErrUnsupported is returned for links that match a platform but carry no post.
	ErrUnsupported = errors.New("unsupported link")
)

// Resolver turns a canonical link into post metadata and media candidates.
// Implementations hold no state between calls.
type Resolver interface {
	Platform() social.Platform
	Resolve(ctx context.Context, match social.URLMatch, canonical social.CanonicalURL) (*social.ResolvedPost, error)
}

// getJSON fetches url and decodes a JSON body into out. Any status but 200 is
// reported as a *httpclient.StatusError.
func getJSON(ctx context.Context, client *resty.Client, url string, out interface{}) error {
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch %s", url)
	}
	if resp.StatusCode() != 200 {
		return &httpclient.StatusError{URL: url, StatusCode: resp.StatusCode()}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return errors.Wrapf(ErrMalformedResponse, "%s: %s", url, err.Error())
	}
	return nil
}

func missing(field, url string) error {
	return errors.Wrapf(ErrMissingField, "%s in %s", field, url)
}
