package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/pkg/errors"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/httpclient"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/media"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/resolver"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

// CommandPrefix marks messages addressed to other bots. They are never scanned.
const CommandPrefix = "!"

// MessageKind classifies incoming messages.
type MessageKind string

const (
	KindText   MessageKind = "text"
	KindNotice MessageKind = "notice"
	KindOther  MessageKind = "other"
)

// Message is an incoming chat message.
type Message struct {
	ID        string
	ChannelID string
	RootID    string
	SenderID  string
	Kind      MessageKind
	Body      string
}

//go:generate mockgen -destination=mocks/mock_publisher.go -package=mocks github.com/fmartingr/mattermost-plugin-media-preview/server/dispatch Publisher

// Publisher sends results back to the room a message came from.
type Publisher interface {
	// Acknowledge marks the message as seen by the bot.
	Acknowledge(ctx context.Context, msg Message) error
	Reply(ctx context.Context, msg Message, text string) error
	PublishMedia(ctx context.Context, msg Message, asset *social.MediaAsset) error
}

// Fetcher downloads media candidates.
type Fetcher interface {
	Fetch(ctx context.Context, candidate social.MediaCandidate) (*social.MediaAsset, error)
}

// Canonicalizer normalizes matches before resolution.
type Canonicalizer interface {
	Canonicalize(ctx context.Context, match social.URLMatch) (social.CanonicalURL, error)
}

// Logger is satisfied by plugin.API.
type Logger interface {
	LogDebug(msg string, keyValuePairs ...any)
	LogInfo(msg string, keyValuePairs ...any)
	LogWarn(msg string, keyValuePairs ...any)
	LogError(msg string, keyValuePairs ...any)
}

// Dispatcher runs every link of a message through its platform pipeline.
type Dispatcher struct {
	matcher       *social.Matcher
	canonicalizer Canonicalizer
	resolvers     map[social.Platform]resolver.Resolver
	fetcher       Fetcher
	publisher     Publisher
	logger        Logger
}

// New creates a dispatcher. Platforms without a resolver are skipped.
func New(
	matcher *social.Matcher,
	canonicalizer Canonicalizer,
	fetcher Fetcher,
	publisher Publisher,
	logger Logger,
	resolvers ...resolver.Resolver,
) *Dispatcher {
	d := &Dispatcher{
		matcher:       matcher,
		canonicalizer: canonicalizer,
		resolvers:     make(map[social.Platform]resolver.Resolver, len(resolvers)),
		fetcher:       fetcher,
		publisher:     publisher,
		logger:        logger,
	}
	for _, r := range resolvers {
		d.resolvers[r.Platform()] = r
	}
	return d
}

// Platforms returns the platforms that have a resolver, in dispatch order.
func (d *Dispatcher) Platforms() []social.Platform {
	platforms := make([]social.Platform, 0, len(d.resolvers))
	for _, p := range social.DispatchOrder {
		if _, ok := d.resolvers[p]; ok {
			platforms = append(platforms, p)
		}
	}
	return platforms
}

// Dispatch processes every supported link in msg. Links are handled one at a
// time, platforms in social.DispatchOrder and links in text order. A failing
// link never stops the ones after it; only a cancelled context does.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message, cfg Config) {
	if !accepts(msg, cfg) {
		return
	}

	for _, platform := range social.DispatchOrder {
		pcfg := cfg.Platform(platform)
		if !pcfg.Enabled {
			continue
		}
		if _, ok := d.resolvers[platform]; !ok {
			continue
		}

		for _, match := range d.matcher.MatchPlatform(platform, msg.Body) {
			if err := ctx.Err(); err != nil {
				d.logger.LogDebug("Stopped processing message", "postID", msg.ID, "error", err.Error())
				return
			}
			d.processMatch(ctx, msg, match, pcfg)
		}
	}
}

func accepts(msg Message, cfg Config) bool {
	switch msg.Kind {
	case KindText:
	case KindNotice:
		if !cfg.RespondToNotice {
			return false
		}
	default:
		return false
	}
	return !strings.HasPrefix(msg.Body, CommandPrefix)
}

// processMatch is the error boundary of a single link.
func (d *Dispatcher) processMatch(ctx context.Context, msg Message, match social.URLMatch, pcfg PlatformConfig) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.LogError("Recovered from panic while processing link",
				"platform", string(match.Platform),
				"url", match.URL,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	if err := d.publisher.Acknowledge(ctx, msg); err != nil {
		d.logger.LogDebug("Failed to acknowledge message", "postID", msg.ID, "error", err.Error())
	}

	post, err := d.resolve(ctx, match)
	if err != nil {
		d.warn("Failed to resolve link", match.Platform, match.URL, err)
		return
	}

	if pcfg.Info {
		if text := post.InfoText(); text != "" {
			if err := d.publisher.Reply(ctx, msg, text); err != nil {
				d.warn("Failed to reply with post info", match.Platform, match.URL, err)
			}
		}
	}

	if post.UnknownMedia != "" && (pcfg.Image || pcfg.Video) {
		d.logger.LogWarn("Unknown media type",
			"platform", string(match.Platform),
			"url", match.URL,
			"media", post.UnknownMedia,
		)
	}

	d.publishCandidates(ctx, msg, match, post.Candidates, pcfg)
}

func (d *Dispatcher) resolve(ctx context.Context, match social.URLMatch) (*social.ResolvedPost, error) {
	r, ok := d.resolvers[match.Platform]
	if !ok {
		return nil, errors.Wrapf(resolver.ErrUnsupported, "no resolver for %s", match.Platform)
	}

	canonical, err := d.canonicalizer.Canonicalize(ctx, match)
	if err != nil {
		return nil, errors.Wrap(err, "failed to canonicalize link")
	}

	return r.Resolve(ctx, match, canonical)
}

// publishCandidates fetches and publishes every candidate whose role is
// enabled. A fallback video is only used when the primary video of the same
// post could not be published.
func (d *Dispatcher) publishCandidates(ctx context.Context, msg Message, match social.URLMatch, candidates []social.MediaCandidate, pcfg PlatformConfig) {
	primaryVideoFailed := false

	for _, candidate := range candidates {
		if !pcfg.Allows(candidate.Role) {
			continue
		}
		if candidate.Role == social.RoleFallbackVideo && !primaryVideoFailed {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		if err := d.publishCandidate(ctx, msg, candidate); err != nil {
			if candidate.Role == social.RolePrimaryVideo {
				primaryVideoFailed = true
			}
			if errors.Is(err, media.ErrUnknownMediaType) {
				d.warn("Unknown media type", match.Platform, candidate.URL, err)
				continue
			}
			d.warn("Failed to publish media", match.Platform, candidate.URL, err)
		}
	}
}

func (d *Dispatcher) publishCandidate(ctx context.Context, msg Message, candidate social.MediaCandidate) error {
	asset, err := d.fetcher.Fetch(ctx, candidate)
	if err != nil {
		return err
	}

	d.logger.LogDebug("Fetched media",
		"url", candidate.URL,
		"role", string(candidate.Role),
		"filename", asset.Filename,
		"size", asset.Size,
	)

	return d.publisher.PublishMedia(ctx, msg, asset)
}

func (d *Dispatcher) warn(msg string, platform social.Platform, url string, err error) {
	kv := []any{"platform", string(platform), "url", url}
	if status := httpclient.StatusCode(err); status != 0 {
		kv = append(kv, "status", status)
	}
	kv = append(kv, "error", err.Error())
	d.logger.LogWarn(msg, kv...)
}
