package dispatch

import (
	"context"
	"fmt"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/httpclient"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

// PreviewResult is the outcome of resolving one link without publishing it.
type PreviewResult struct {
	Platform     social.Platform      `json:"platform"`
	URL          string               `json:"url"`
	CanonicalURL string               `json:"canonicalUrl,omitempty"`
	Post         *social.ResolvedPost `json:"post,omitempty"`
	Status       int                  `json:"status,omitempty"`
	Error        string               `json:"error,omitempty"`
}

// Preview resolves every supported link in text and reports what would be
// published, without fetching media or talking to the publisher.
func (d *Dispatcher) Preview(ctx context.Context, text string) []PreviewResult {
	results := []PreviewResult{}
	for _, match := range d.matcher.Match(text) {
		if ctx.Err() != nil {
			break
		}
		results = append(results, d.previewMatch(ctx, match))
	}
	return results
}

func (d *Dispatcher) previewMatch(ctx context.Context, match social.URLMatch) (result PreviewResult) {
	result = PreviewResult{Platform: match.Platform, URL: match.URL}

	defer func() {
		if r := recover(); r != nil {
			result.Post = nil
			result.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	post, err := d.resolve(ctx, match)
	if err != nil {
		result.Status = httpclient.StatusCode(err)
		result.Error = err.Error()
		return result
	}

	result.CanonicalURL = post.URL
	result.Post = post
	return result
}
