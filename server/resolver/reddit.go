package resolver

import (
	"context"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/media"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

// DefaultRedditMuxEndpoint remuxes Reddit's separate DASH video and audio
// tracks into a single file.
const DefaultRedditMuxEndpoint = "https://sd.rapidsave.com/download.php"

type redditListing []struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Name                  string `json:"name"`
	Title                 string `json:"title"`
	SubredditNamePrefixed string `json:"subreddit_name_prefixed"`
	URLOverriddenByDest   string `json:"url_overridden_by_dest"`
	SecureMedia           *struct {
		RedditVideo *redditVideo `json:"reddit_video"`
	} `json:"secure_media"`
	Preview *struct {
		RedditVideoPreview *redditVideo `json:"reddit_video_preview"`
	} `json:"preview"`
}

type redditVideo struct {
	FallbackURL string `json:"fallback_url"`
}

// RedditResolver resolves posts through the public listing JSON.
type RedditResolver struct {
	client      *resty.Client
	muxEndpoint string
}

// NewRedditResolver creates a Reddit resolver. The client must send a
// descriptive User-Agent, Reddit blocks generic ones.
func NewRedditResolver(client *resty.Client, muxEndpoint string) *RedditResolver {
	if muxEndpoint == "" {
		muxEndpoint = DefaultRedditMuxEndpoint
	}
	return &RedditResolver{
		client:      client,
		muxEndpoint: muxEndpoint,
	}
}

// Platform returns social.Reddit
func (r *RedditResolver) Platform() social.Platform {
	return social.Reddit
}

// Resolve fetches the listing of a canonical permalink.
func (r *RedditResolver) Resolve(ctx context.Context, _ social.URLMatch, canonical social.CanonicalURL) (*social.ResolvedPost, error) {
	lookupURL := canonical.LookupURL
	if lookupURL == "" {
		lookupURL = RedditListingURL(canonical.URL)
	}

	var listing redditListing
	if err := getJSON(ctx, r.client, lookupURL, &listing); err != nil {
		return nil, err
	}
	if len(listing) == 0 || len(listing[0].Data.Children) == 0 {
		return nil, missing("data.children", lookupURL)
	}

	post := listing[0].Data.Children[0].Data
	switch {
	case post.Name == "":
		return nil, missing("name", lookupURL)
	case post.Title == "":
		return nil, missing("title", lookupURL)
	case post.SubredditNamePrefixed == "":
		return nil, missing("subreddit_name_prefixed", lookupURL)
	}

	resolved := &social.ResolvedPost{
		Platform:  social.Reddit,
		URL:       canonical.URL,
		Community: post.SubredditNamePrefixed,
		Title:     post.Title,
	}

	mediaURL, mimeType := redditMedia(post)
	switch {
	case mediaURL == "":
	case media.IsImage(mimeType):
		resolved.Candidates = append(resolved.Candidates, social.MediaCandidate{
			URL:      mediaURL,
			MimeType: mimeType,
			Role:     social.RolePrimaryImage,
			BaseName: post.Name,
		})
	case media.IsVideo(mimeType):
		resolved.Candidates = append(resolved.Candidates,
			social.MediaCandidate{
				URL:      r.muxURL(canonical.URL, mediaURL),
				MimeType: mimeType,
				Role:     social.RolePrimaryVideo,
				BaseName: post.Name,
			},
			social.MediaCandidate{
				URL:      mediaURL,
				MimeType: mimeType,
				Role:     social.RoleFallbackVideo,
				BaseName: post.Name,
			},
		)
	default:
		resolved.UnknownMedia = mediaURL
	}

	return resolved, nil
}

// redditMedia finds the media URL of a post and guesses its type. When the
// destination has no usable extension the hosted video is preferred over the
// preview clip.
func redditMedia(post redditPost) (mediaURL, mimeType string) {
	if post.URLOverriddenByDest == "" {
		return "", ""
	}
	mediaURL = post.URLOverriddenByDest
	if mimeType = media.TypeByURL(mediaURL); mimeType != "" {
		return mediaURL, mimeType
	}

	var fallback string
	switch {
	case post.SecureMedia != nil && post.SecureMedia.RedditVideo != nil:
		fallback = post.SecureMedia.RedditVideo.FallbackURL
	case post.Preview != nil && post.Preview.RedditVideoPreview != nil:
		fallback = post.Preview.RedditVideoPreview.FallbackURL
	}
	if fallback == "" {
		return mediaURL, ""
	}

	mediaURL = stripQuery(fallback)
	return mediaURL, media.TypeByURL(mediaURL)
}

// muxURL asks the remux mirror to join the DASH video with its audio track.
// The audio track name follows v.redd.it's DASH_<resolution> naming.
func (r *RedditResolver) muxURL(permalink, videoURL string) string {
	audioURL := strings.Replace(videoURL, "DASH_720", "DASH_audio", 1)
	return r.muxEndpoint +
		"?permalink=" + url.QueryEscape(permalink) +
		"&video_url=" + url.QueryEscape(videoURL+"?source=fallback") +
		"&audio_url=" + url.QueryEscape(audioURL+"?source=fallback")
}
