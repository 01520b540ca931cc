package social

import (
	"fmt"
	"strings"
)

// Platform identifies a supported social network.
type Platform string

const (
	Reddit    Platform = "reddit"
	Instagram Platform = "instagram"
	YouTube   Platform = "youtube"
	TikTok    Platform = "tiktok"
)

// DispatchOrder is the fixed order in which platforms are processed for a message.
var DispatchOrder = []Platform{YouTube, Instagram, Reddit, TikTok}

// Role tags what a media candidate represents for its post.
type Role string

const (
	RolePrimaryImage  Role = "primary_image"
	RolePrimaryVideo  Role = "primary_video"
	RoleThumbnail     Role = "thumbnail"
	RoleFallbackVideo Role = "fallback_video"
)

// RedditParts are the captures of a Reddit link.
type RedditParts struct {
	Subdomain string
	Host      string
	Subreddit string
	// Kind is "comments" for permalinks and "s" for share links.
	Kind   string
	PostID string
	Rest   string
}

// Path returns the path portion of the link including slug and query.
func (r RedditParts) Path() string {
	return "/r/" + r.Subreddit + "/" + r.Kind + "/" + r.PostID + r.Rest
}

// InstagramParts are the captures of an Instagram link.
type InstagramParts struct {
	Username  string
	Kind      string
	Shortcode string
	Index     string
}

// YouTubeParts are the captures of a YouTube link.
type YouTubeParts struct {
	Host    string
	Prefix  string
	VideoID string
	Noise   string
}

// TikTokParts are the captures of a TikTok link.
type TikTokParts struct {
	User    string
	VideoID string
}

// URLMatch is one platform link found in a message body.
type URLMatch struct {
	Platform Platform
	URL      string
	// ID is the identifying capture: post id, shortcode or video id.
	ID string

	Reddit    *RedditParts
	Instagram *InstagramParts
	YouTube   *YouTubeParts
	TikTok    *TikTokParts
}

// CanonicalURL is a normalized link ready for an upstream lookup.
type CanonicalURL struct {
	Platform  Platform
	URL       string
	LookupURL string
}

// MediaCandidate describes a media source that has not been fetched yet.
type MediaCandidate struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType,omitempty"`
	Role     Role   `json:"role"`
	BaseName string `json:"baseName"`
}

// MediaAsset is a downloaded media file ready to be published.
type MediaAsset struct {
	Data     []byte
	MimeType string
	Filename string
	Size     int64
}

// ResolvedPost is the metadata and media found for a single link.
type ResolvedPost struct {
	Platform   Platform         `json:"platform"`
	URL        string           `json:"url"`
	Community  string           `json:"community,omitempty"`
	Title      string           `json:"title,omitempty"`
	Caption    string           `json:"caption,omitempty"`
	Hashtags   []string         `json:"hashtags,omitempty"`
	Mentions   []string         `json:"mentions,omitempty"`
	Likes      *int64           `json:"likes,omitempty"`
	Comments   *int64           `json:"comments,omitempty"`
	Candidates []MediaCandidate `json:"candidates,omitempty"`

	// UnknownMedia holds the media URL when the post has media of an undecidable type.
	UnknownMedia string `json:"unknownMedia,omitempty"`
}

// InfoText renders the post summary as a markdown message. An empty string
// means there is nothing to say about the post.
func (p *ResolvedPost) InfoText() string {
	switch p.Platform {
	case Reddit:
		if p.Title == "" {
			return ""
		}
		return fmt.Sprintf("**%s: %s**", p.Community, p.Title)
	case Instagram:
		lines := []string{
			"Username: " + p.Community,
			"Caption: " + p.Caption,
			"Hashtags: " + strings.Join(p.Hashtags, ", "),
			"Mentions: " + strings.Join(p.Mentions, ", "),
		}
		if p.Likes != nil {
			lines = append(lines, fmt.Sprintf("Likes: %d", *p.Likes))
		}
		if p.Comments != nil {
			lines = append(lines, fmt.Sprintf("Comments: %d", *p.Comments))
		}
		return strings.Join(lines, "\n")
	default:
		return p.Title
	}
}
