package main

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/dispatch"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

// configuration captures the plugin's external configuration as exposed in the Mattermost server
// configuration, as well as values computed from the configuration. Any public fields will be
// deserialized from the Mattermost server configuration in OnConfigurationChange.
//
// As plugins are inherently concurrent (hooks being called asynchronously), and the plugin
// configuration can change at any time, access to the configuration must be synchronized. The
// strategy used in this plugin is to guard a pointer to the configuration, and clone the entire
// struct whenever it changes.
//
// The field names must match the keys in plugin.json exactly.
type configuration struct {
	RespondToNotice bool

	RedditEnabled   bool
	RedditInfo      bool
	RedditImage     bool
	RedditVideo     bool
	RedditThumbnail bool

	InstagramEnabled   bool
	InstagramInfo      bool
	InstagramImage     bool
	InstagramVideo     bool
	InstagramThumbnail bool

	YouTubeEnabled   bool
	YouTubeInfo      bool
	YouTubeImage     bool
	YouTubeVideo     bool
	YouTubeThumbnail bool

	TikTokEnabled   bool
	TikTokInfo      bool
	TikTokImage     bool
	TikTokVideo     bool
	TikTokThumbnail bool

	// Empty values fall back to the resolver defaults.
	RedditMuxURL    string
	TikTokMirrorURL string
}

// Clone shallow copies the configuration. Your implementation may require a deep copy if
// your configuration has reference types.
func (c *configuration) Clone() *configuration {
	var clone = *c
	return &clone
}

// DispatchConfig converts the plugin settings into dispatcher toggles.
func (c *configuration) DispatchConfig() dispatch.Config {
	return dispatch.Config{
		RespondToNotice: c.RespondToNotice,
		Platforms: map[social.Platform]dispatch.PlatformConfig{
			social.Reddit: {
				Enabled:   c.RedditEnabled,
				Info:      c.RedditInfo,
				Image:     c.RedditImage,
				Video:     c.RedditVideo,
				Thumbnail: c.RedditThumbnail,
			},
			social.Instagram: {
				Enabled:   c.InstagramEnabled,
				Info:      c.InstagramInfo,
				Image:     c.InstagramImage,
				Video:     c.InstagramVideo,
				Thumbnail: c.InstagramThumbnail,
			},
			social.YouTube: {
				Enabled:   c.YouTubeEnabled,
				Info:      c.YouTubeInfo,
				Image:     c.YouTubeImage,
				Video:     c.YouTubeVideo,
				Thumbnail: c.YouTubeThumbnail,
			},
			social.TikTok: {
				Enabled:   c.TikTokEnabled,
				Info:      c.TikTokInfo,
				Image:     c.TikTokImage,
				Video:     c.TikTokVideo,
				Thumbnail: c.TikTokThumbnail,
			},
		},
	}
}

// getConfiguration retrieves the active configuration under lock, making it safe to use
// concurrently. The active configuration may change underneath the client of this method, but
// the struct returned by this API call is considered immutable.
func (p *Plugin) getConfiguration() *configuration {
	p.configurationLock.RLock()
	defer p.configurationLock.RUnlock()

	if p.configuration == nil {
		return &configuration{}
	}

	return p.configuration
}

// setConfiguration replaces the active configuration under lock.
//
// Do not call setConfiguration while holding the configurationLock, as sync.Mutex is not
// reentrant. In particular, avoid using the plugin API entirely, as this may in turn trigger a
// hook back into the plugin. If that hook attempts to acquire this lock, a deadlock may occur.
//
// This method panics if setConfiguration is called with the existing configuration. This almost
// certainly means that the configuration was modified without being cloned and may result in
// an unsafe access.
func (p *Plugin) setConfiguration(configuration *configuration) {
	p.configurationLock.Lock()
	defer p.configurationLock.Unlock()

	if configuration != nil && p.configuration == configuration {
		// Ignore assignment if the configuration struct is empty. Go will optimize the
		// allocation for same to point at the same memory address, breaking the check
		// above.
		if reflect.ValueOf(*configuration).NumField() == 0 {
			return
		}

		panic("setConfiguration called with the existing configuration")
	}

	p.configuration = configuration
}

// OnConfigurationChange is invoked when configuration changes may have been made.
func (p *Plugin) OnConfigurationChange() error {
	var configuration = new(configuration)

	// Load the public configuration fields from the Mattermost server configuration.
	if err := p.API.LoadPluginConfiguration(configuration); err != nil {
		return errors.Wrap(err, "failed to load plugin configuration")
	}

	p.setConfiguration(configuration)

	// Upstream endpoints are baked into the resolvers, so they are rebuilt once activated.
	if p.threadReplyService != nil {
		p.setDispatcher(p.newDispatcher(configuration))
	}

	return nil
}

// getDispatchConfig returns the toggles for the next message. An override saved
// through the admin API always wins over the plugin settings.
func (p *Plugin) getDispatchConfig() dispatch.Config {
	settings := p.getConfiguration().DispatchConfig()
	if p.kvstore == nil {
		return settings
	}

	override, err := p.kvstore.GetConfigOverride()
	if err != nil {
		p.API.LogError("Failed to load config override from KV store", "error", err.Error())
		return settings
	}
	if override == nil {
		return settings
	}
	return override.Clone()
}
