package resolver

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

type youtubeOEmbed struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// YouTubeResolver resolves videos through the oEmbed endpoint.
type YouTubeResolver struct {
	client *resty.Client
}

func NewYouTubeResolver(client *resty.Client) *YouTubeResolver {
	return &YouTubeResolver{
		client: client,
	}
}

func (y *YouTubeResolver) Platform() social.Platform {
	return social.YouTube
}

func (y *YouTubeResolver) Resolve(ctx context.Context, match social.URLMatch, canonical social.CanonicalURL) (*social.ResolvedPost, error) {
	if match.ID == "" {
		return nil, errors.Wrap(ErrUnsupported, "youtube link without video id")
	}
	lookupURL := canonical.LookupURL
	if lookupURL == "" {
		lookupURL = YouTubeOEmbedURL(canonical.URL)
	}

	var oembed youtubeOEmbed
	if err := getJSON(ctx, y.client, lookupURL, &oembed); err != nil {
		return nil, err
	}
	if oembed.Title == "" {
		return nil, missing("title", lookupURL)
	}

	return &social.ResolvedPost{
		Platform:  social.YouTube,
		URL:       canonical.URL,
		Community: oembed.AuthorName,
		Title:     oembed.Title,
		Candidates: []social.MediaCandidate{{
			URL:      YouTubeThumbnailURL(match.ID),
			MimeType: "image/jpeg",
			Role:     social.RoleThumbnail,
			BaseName: match.ID,
		}},
	}, nil
}

// YouTubeThumbnailURL returns the high quality thumbnail of a video.
func YouTubeThumbnailURL(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/hqdefault.jpg"
}
