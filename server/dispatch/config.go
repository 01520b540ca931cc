package dispatch

import (
	"github.com/pkg/errors"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

// PlatformConfig holds the toggles of a single platform.
type PlatformConfig struct {
	Enabled   bool `json:"enabled"`
	Info      bool `json:"info"`
	Image     bool `json:"image"`
	Video     bool `json:"video"`
	Thumbnail bool `json:"thumbnail"`
}

// Allows reports whether candidates with the given role may be published.
func (c PlatformConfig) Allows(role social.Role) bool {
	switch role {
	case social.RolePrimaryImage:
		return c.Image
	case social.RolePrimaryVideo, social.RoleFallbackVideo:
		return c.Video
	case social.RoleThumbnail:
		return c.Thumbnail
	}
	return false
}

// Config is the snapshot of toggles used for one message.
type Config struct {
	// RespondToNotice also scans messages posted by bots and webhooks.
	RespondToNotice bool                               `json:"respondToNotice"`
	Platforms       map[social.Platform]PlatformConfig `json:"platforms"`
}

// DefaultConfig enables every platform and every kind of output.
func DefaultConfig() Config {
	cfg := Config{Platforms: make(map[social.Platform]PlatformConfig, len(social.DispatchOrder))}
	for _, p := range social.DispatchOrder {
		cfg.Platforms[p] = PlatformConfig{
			Enabled:   true,
			Info:      true,
			Image:     true,
			Video:     true,
			Thumbnail: true,
		}
	}
	return cfg
}

// Platform returns the toggles of p. Platforms missing from the config are disabled.
func (c Config) Platform(p social.Platform) PlatformConfig {
	return c.Platforms[p]
}

// Clone returns a deep copy of the config.
func (c Config) Clone() Config {
	clone := c
	if c.Platforms != nil {
		clone.Platforms = make(map[social.Platform]PlatformConfig, len(c.Platforms))
		for p, pc := range c.Platforms {
			clone.Platforms[p] = pc
		}
	}
	return clone
}

// Validate rejects configs that name unknown platforms.
func (c Config) Validate() error {
	for p := range c.Platforms {
		if !isKnownPlatform(p) {
			return errors.Errorf("unknown platform %q", p)
		}
	}
	return nil
}

func isKnownPlatform(p social.Platform) bool {
	for _, known := range social.DispatchOrder {
		if p == known {
			return true
		}
	}
	return false
}
