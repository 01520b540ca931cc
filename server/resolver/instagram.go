package resolver

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/httpclient"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

const (
	instagramGraphQLURL = "https://www.instagram.com/graphql/query"
	// Public web client identifiers used by instagram.com itself.
	instagramAppID     = "936619743392459"
	instagramPostDoc   = "8845758582119845"
	instagramDocName   = "PolarisPostActionLoadPostQueryQuery"
	instagramImageType = "image/jpeg"
	instagramVideoType = "video/mp4"
)

var (
	hashtagPattern = regexp.MustCompile(`(?:^|[^\w])#(\w+)`)
	mentionPattern = regexp.MustCompile(`(?:^|[^\w])@([\w.]*\w)`)
)

// InstagramPost is the data the plugin needs about an Instagram post.
type InstagramPost struct {
	Shortcode     string
	OwnerUsername string
	Caption       string
	Likes         int64
	Comments      int64
	IsVideo       bool
	DisplayURL    string
	VideoURL      string
}

// InstagramSource looks up Instagram posts by shortcode.
type InstagramSource interface {
	FetchPost(ctx context.Context, shortcode string) (*InstagramPost, error)
}

// InstagramResolver resolves posts through an InstagramSource.
type InstagramResolver struct {
	source InstagramSource
}

func NewInstagramResolver(source InstagramSource) *InstagramResolver {
	return &InstagramResolver{
		source: source,
	}
}

func (i *InstagramResolver) Platform() social.Platform {
	return social.Instagram
}

func (i *InstagramResolver) Resolve(ctx context.Context, match social.URLMatch, canonical social.CanonicalURL) (*social.ResolvedPost, error) {
	if match.Instagram == nil || match.Instagram.Shortcode == "" {
		return nil, errors.Wrap(ErrUnsupported, "instagram link without shortcode")
	}
	if match.Instagram.Kind == "stories" {
		return nil, errors.Wrapf(ErrUnsupported, "instagram story %s", canonical.URL)
	}
	shortcode := match.Instagram.Shortcode

	post, err := i.source.FetchPost(ctx, shortcode)
	if err != nil {
		return nil, err
	}

	likes, comments := post.Likes, post.Comments
	resolved := &social.ResolvedPost{
		Platform:  social.Instagram,
		URL:       canonical.URL,
		Community: post.OwnerUsername,
		Caption:   post.Caption,
		Hashtags:  captionTags(hashtagPattern, post.Caption),
		Mentions:  captionTags(mentionPattern, post.Caption),
		Likes:     &likes,
		Comments:  &comments,
	}

	if post.DisplayURL != "" {
		role := social.RolePrimaryImage
		if post.IsVideo {
			role = social.RoleThumbnail
		}
		resolved.Candidates = append(resolved.Candidates, social.MediaCandidate{
			URL:      post.DisplayURL,
			MimeType: instagramImageType,
			Role:     role,
			BaseName: shortcode,
		})
	}
	if post.IsVideo && post.VideoURL != "" {
		resolved.Candidates = append(resolved.Candidates, social.MediaCandidate{
			URL:      post.VideoURL,
			MimeType: instagramVideoType,
			Role:     social.RolePrimaryVideo,
			BaseName: shortcode,
		})
	}

	return resolved, nil
}

func captionTags(pattern *regexp.Regexp, caption string) []string {
	var tags []string
	for _, m := range pattern.FindAllStringSubmatch(caption, -1) {
		tags = append(tags, m[1])
	}
	return tags
}

type instagramGraphQLResponse struct {
	Data struct {
		Media *instagramMedia `json:"xdt_shortcode_media"`
	} `json:"data"`
}

type instagramMedia struct {
	Shortcode  string `json:"shortcode"`
	IsVideo    bool   `json:"is_video"`
	DisplayURL string `json:"display_url"`
	VideoURL   string `json:"video_url"`
	Owner      struct {
		Username string `json:"username"`
	} `json:"owner"`
	Caption struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`
	Likes struct {
		Count int64 `json:"count"`
	} `json:"edge_media_preview_like"`
	Comments struct {
		Count int64 `json:"count"`
	} `json:"edge_media_to_comment"`
}

// GraphQLSource queries the GraphQL endpoint used by the instagram.com web client.
type GraphQLSource struct {
	client   *resty.Client
	endpoint string
}

// NewGraphQLSource creates a source that queries endpoint, or the public
// Instagram endpoint when endpoint is empty.
func NewGraphQLSource(client *resty.Client, endpoint string) *GraphQLSource {
	if endpoint == "" {
		endpoint = instagramGraphQLURL
	}
	return &GraphQLSource{
		client:   client,
		endpoint: endpoint,
	}
}

func (g *GraphQLSource) FetchPost(ctx context.Context, shortcode string) (*InstagramPost, error) {
	variables, err := json.Marshal(map[string]interface{}{
		"shortcode":               shortcode,
		"fetch_tagged_user_count": nil,
		"hoisted_comment_id":      nil,
		"hoisted_reply_id":        nil,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode instagram query")
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("X-IG-App-ID", instagramAppID).
		SetHeader("X-FB-Friendly-Name", instagramDocName).
		SetFormData(map[string]string{
			"variables": string(variables),
			"doc_id":    instagramPostDoc,
		}).
		Post(g.endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query instagram post %s", shortcode)
	}
	if resp.StatusCode() != 200 {
		return nil, &httpclient.StatusError{URL: g.endpoint, StatusCode: resp.StatusCode()}
	}

	var out instagramGraphQLResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "instagram post %s: %s", shortcode, err.Error())
	}
	m := out.Data.Media
	if m == nil {
		return nil, missing("data.xdt_shortcode_media", g.endpoint)
	}

	post := &InstagramPost{
		Shortcode:     m.Shortcode,
		OwnerUsername: m.Owner.Username,
		Likes:         m.Likes.Count,
		Comments:      m.Comments.Count,
		IsVideo:       m.IsVideo,
		DisplayURL:    m.DisplayURL,
		VideoURL:      m.VideoURL,
	}
	if len(m.Caption.Edges) > 0 {
		post.Caption = m.Caption.Edges[0].Node.Text
	}
	return post, nil
}
