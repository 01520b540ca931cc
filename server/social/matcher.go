package social

import (
	"regexp"
	"strings"
)

const trailingPunctuation = ".,;:!?)]}>'\""

var (
	redditPattern = regexp.MustCompile(
		`(?i)(?:(https?:)?//)?(?:(www|m|old|nm)\.)?(reddit\.com|redd\.it)/r/([A-Za-z0-9_]+)/(comments|s)/([A-Za-z0-9_]+)(\S*)`)
	instagramPattern = regexp.MustCompile(
		`(?i)(?:https?://)?(?:www\.)?instagram\.com/([^\s?#]*)`)
	youtubePattern = regexp.MustCompile(
		`(?i)(?:https?://)?(?:(www|m|music)\.)?(youtube\.com|youtu\.be)(/(?:[\w-]+\?v=|embed/|v/|shorts/|live/)?)([\w-]{11})((?:[^\w\s-]\S*)?)(?:\s|$)`)
	tiktokPattern = regexp.MustCompile(
		`(?i)(?:https?://)?(?:(www|m|vm|vt)\.)?tiktok\.com/(?:(@[\w.-]+)/)?(?:(video)/)?([\w-]+)`)

	shortcodePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	digitsPattern    = regexp.MustCompile(`^[0-9]+$`)
)

var instagramMarkers = map[string]bool{
	"p":       true,
	"reel":    true,
	"reels":   true,
	"tv":      true,
	"stories": true,
}

// Top-level Instagram paths that never lead to a post.
var instagramReserved = map[string]bool{
	"explore":  true,
	"accounts": true,
	"direct":   true,
}

// Matcher finds platform links in free-form message text.
type Matcher struct{}

// NewMatcher creates a new matcher
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match runs every platform recognizer over the text. Results are grouped by
// platform in DispatchOrder and keep left-to-right order within a platform.
func (m *Matcher) Match(text string) []URLMatch {
	var matches []URLMatch
	for _, platform := range DispatchOrder {
		matches = append(matches, m.MatchPlatform(platform, text)...)
	}
	return matches
}

// MatchPlatform runs a single platform recognizer over the whole text.
func (m *Matcher) MatchPlatform(platform Platform, text string) []URLMatch {
	switch platform {
	case Reddit:
		return matchReddit(text)
	case Instagram:
		return matchInstagram(text)
	case YouTube:
		return matchYouTube(text)
	case TikTok:
		return matchTikTok(text)
	}
	return nil
}

func matchReddit(text string) []URLMatch {
	var out []URLMatch
	for _, g := range redditPattern.FindAllStringSubmatch(text, -1) {
		parts := &RedditParts{
			Subdomain: strings.ToLower(g[2]),
			Host:      strings.ToLower(g[3]),
			Subreddit: g[4],
			Kind:      strings.ToLower(g[5]),
			PostID:    g[6],
			Rest:      strings.TrimRight(g[7], trailingPunctuation),
		}
		if parts.PostID == "" {
			continue
		}

		scheme := strings.ToLower(g[1])
		if scheme == "" {
			scheme = "https:"
		}
		host := parts.Host
		if parts.Subdomain != "" {
			host = parts.Subdomain + "." + host
		}

		out = append(out, URLMatch{
			Platform: Reddit,
			URL:      scheme + "//" + host + parts.Path(),
			ID:       parts.PostID,
			Reddit:   parts,
		})
	}
	return out
}

func matchInstagram(text string) []URLMatch {
	var out []URLMatch
	for _, g := range instagramPattern.FindAllStringSubmatch(text, -1) {
		parts, ok := parseInstagramPath(strings.TrimRight(g[1], trailingPunctuation))
		if !ok {
			continue
		}

		path := parts.Shortcode + "/"
		if parts.Kind != "" {
			path = parts.Kind + "/" + path
		}
		if parts.Username != "" {
			path = parts.Username + "/" + path
		}
		if parts.Index != "" {
			path += parts.Index + "/"
		}

		out = append(out, URLMatch{
			Platform:  Instagram,
			URL:       "https://www.instagram.com/" + path,
			ID:        parts.Shortcode,
			Instagram: parts,
		})
	}
	return out
}

// parseInstagramPath splits "[username/][marker/]shortcode[/index]". A lone
// segment without a marker is a profile link and is rejected.
func parseInstagramPath(path string) (*InstagramParts, bool) {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 || instagramReserved[strings.ToLower(segs[0])] {
		return nil, false
	}

	parts := &InstagramParts{}
	i := 0
	if !instagramMarkers[strings.ToLower(segs[0])] {
		if len(segs) == 1 {
			return nil, false
		}
		parts.Username = segs[0]
		i++
	}
	if i < len(segs) && instagramMarkers[strings.ToLower(segs[i])] {
		parts.Kind = strings.ToLower(segs[i])
		i++
	}
	if i >= len(segs) || !shortcodePattern.MatchString(segs[i]) {
		return nil, false
	}
	parts.Shortcode = segs[i]
	i++
	if i < len(segs) && digitsPattern.MatchString(segs[i]) {
		parts.Index = segs[i]
	}
	return parts, true
}

func matchYouTube(text string) []URLMatch {
	var out []URLMatch
	for _, g := range youtubePattern.FindAllStringSubmatch(text, -1) {
		parts := &YouTubeParts{
			Host:    strings.ToLower(g[2]),
			Prefix:  g[3],
			VideoID: g[4],
			Noise:   strings.TrimRight(g[5], trailingPunctuation),
		}
		if parts.VideoID == "" {
			continue
		}

		host := parts.Host
		if sub := strings.ToLower(g[1]); sub != "" {
			host = sub + "." + host
		}

		out = append(out, URLMatch{
			Platform: YouTube,
			URL:      "https://" + host + parts.Prefix + parts.VideoID + parts.Noise,
			ID:       parts.VideoID,
			YouTube:  parts,
		})
	}
	return out
}

func matchTikTok(text string) []URLMatch {
	var out []URLMatch
	for _, g := range tiktokPattern.FindAllStringSubmatch(text, -1) {
		parts := &TikTokParts{
			User:    g[2],
			VideoID: g[4],
		}
		if parts.VideoID == "" {
			continue
		}

		host := "www.tiktok.com"
		if sub := strings.ToLower(g[1]); sub != "" {
			host = sub + ".tiktok.com"
		}
		path := "/"
		if parts.User != "" {
			path += parts.User + "/"
		}
		if g[3] != "" {
			path += "video/"
		}

		out = append(out, URLMatch{
			Platform: TikTok,
			URL:      "https://" + host + path + parts.VideoID,
			ID:       parts.VideoID,
			TikTok:   parts,
		})
	}
	return out
}
