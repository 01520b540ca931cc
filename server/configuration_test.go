package main

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/dispatch"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

func TestDispatchConfig(t *testing.T) {
	c := &configuration{
		RespondToNotice:    true,
		RedditEnabled:      true,
		RedditVideo:        true,
		InstagramEnabled:   true,
		InstagramImage:     true,
		YouTubeThumbnail:   true,
		TikTokEnabled:      true,
		TikTokInfo:         true,
		InstagramThumbnail: true,
	}

	cfg := c.DispatchConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.RespondToNotice)
	assert.Equal(t, dispatch.PlatformConfig{Enabled: true, Video: true}, cfg.Platform(social.Reddit))
	assert.Equal(t, dispatch.PlatformConfig{Enabled: true, Image: true, Thumbnail: true}, cfg.Platform(social.Instagram))
	assert.Equal(t, dispatch.PlatformConfig{Thumbnail: true}, cfg.Platform(social.YouTube))
	assert.Equal(t, dispatch.PlatformConfig{Enabled: true, Info: true}, cfg.Platform(social.TikTok))
}

func TestOnConfigurationChange(t *testing.T) {
	t.Run("loads settings", func(t *testing.T) {
		api := setupTestAPI()
		api.On("LoadPluginConfiguration", mock.AnythingOfType("*main.configuration")).
			Run(func(args mock.Arguments) {
				c := args.Get(0).(*configuration)
				c.YouTubeEnabled = true
				c.TikTokMirrorURL = "https://mirror.test"
			}).
			Return(nil)

		p := &Plugin{}
		p.SetAPI(api)

		require.NoError(t, p.OnConfigurationChange())
		assert.True(t, p.getConfiguration().YouTubeEnabled)
		assert.Equal(t, "https://mirror.test", p.getConfiguration().TikTokMirrorURL)
		// Not activated yet, so no dispatcher is built.
		assert.Nil(t, p.getDispatcher())
	})

	t.Run("rebuilds the dispatcher once activated", func(t *testing.T) {
		api := setupTestAPI()
		api.On("LoadPluginConfiguration", mock.Anything).Return(nil)

		p := &Plugin{threadReplyService: NewThreadReplyService(api, "bot")}
		p.SetAPI(api)

		require.NoError(t, p.OnConfigurationChange())
		d := p.getDispatcher()
		require.NotNil(t, d)
		assert.ElementsMatch(t, social.DispatchOrder, d.Platforms())

		require.NoError(t, p.OnConfigurationChange())
		assert.NotSame(t, d, p.getDispatcher())
	})

	t.Run("load failure", func(t *testing.T) {
		api := setupTestAPI()
		api.On("LoadPluginConfiguration", mock.Anything).Return(errors.New("bad config"))

		p := &Plugin{}
		p.SetAPI(api)

		err := p.OnConfigurationChange()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load plugin configuration")
	})
}

func TestGetDispatchConfig(t *testing.T) {
	settings := &configuration{RedditEnabled: true, RedditInfo: true}

	t.Run("no store", func(t *testing.T) {
		p := &Plugin{}
		p.SetAPI(setupTestAPI())
		p.setConfiguration(settings.Clone())

		assert.Equal(t, settings.DispatchConfig(), p.getDispatchConfig())
	})

	t.Run("no override", func(t *testing.T) {
		p := newTestPlugin(setupTestAPI(), &memoryKVStore{})
		p.setConfiguration(settings.Clone())

		assert.Equal(t, settings.DispatchConfig(), p.getDispatchConfig())
	})

	t.Run("override wins", func(t *testing.T) {
		override := dispatch.Config{Platforms: map[social.Platform]dispatch.PlatformConfig{
			social.TikTok: {Enabled: true, Video: true},
		}}
		p := newTestPlugin(setupTestAPI(), &memoryKVStore{override: &override})
		p.setConfiguration(settings.Clone())

		cfg := p.getDispatchConfig()
		assert.Equal(t, override, cfg)
		assert.False(t, cfg.Platform(social.Reddit).Enabled)
	})

	t.Run("store failure falls back to settings", func(t *testing.T) {
		api := setupTestAPI()
		p := newTestPlugin(api, &memoryKVStore{err: errors.New("kv unavailable")})
		p.setConfiguration(settings.Clone())

		assert.Equal(t, settings.DispatchConfig(), p.getDispatchConfig())
		api.AssertCalled(t, "LogError", "Failed to load config override from KV store", "error", "kv unavailable")
	})
}
