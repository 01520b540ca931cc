package main

import (
	"context"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"
	"github.com/mattermost/mattermost/server/public/pluginapi"
	"github.com/pkg/errors"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/dispatch"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/httpclient"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/media"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/resolver"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/store/kvstore"
)

// Plugin implements the interface expected by the Mattermost server to communicate between the server and plugin processes.
type Plugin struct {
	plugin.MattermostPlugin

	// kvstore is the client used to read/write KV records for this plugin.
	kvstore kvstore.KVStore

	// client is the Mattermost server API client.
	client *pluginapi.Client

	// configurationLock synchronizes access to the configuration and the dispatcher.
	configurationLock sync.RWMutex

	// configuration is the active plugin configuration. Consult getConfiguration and
	// setConfiguration for usage.
	configuration *configuration

	// dispatcher turns links in posts into previews
	dispatcher *dispatch.Dispatcher

	// botService manages the media preview bot account
	botService *BotService

	// threadReplyService publishes previews in the thread of the original post
	threadReplyService *ThreadReplyService

	// ctx is cancelled on deactivation and stops in-flight previews.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// OnActivate is invoked when the plugin is activated. If an error is returned, the plugin will be deactivated.
func (p *Plugin) OnActivate() error {
	p.client = pluginapi.NewClient(p.API, p.Driver)

	p.kvstore = kvstore.NewKVStore(p.client)

	p.botService = NewBotService(p.API)
	if err := p.botService.EnsureBotExists(); err != nil {
		return errors.Wrap(err, "failed to ensure bot account exists")
	}

	p.threadReplyService = NewThreadReplyService(p.API, p.botService.GetBotID())

	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.setDispatcher(p.newDispatcher(p.getConfiguration()))

	return nil
}

// OnDeactivate is invoked when the plugin is deactivated.
func (p *Plugin) OnDeactivate() error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// newDispatcher wires the resolvers with one HTTP client per upstream, so a
// circuit breaker opened by one upstream does not affect the others.
func (p *Plugin) newDispatcher(config *configuration) *dispatch.Dispatcher {
	newClient := func(name string) *resty.Client {
		return httpclient.New(httpclient.Options{Name: name, Logger: p.API})
	}

	reddit := newClient("reddit")
	youtube := newClient("youtube")
	instagram := newClient("instagram")
	tiktok := newClient("tiktok")
	downloads := newClient("media")

	return dispatch.New(
		social.NewMatcher(),
		resolver.NewCanonicalizer(reddit),
		media.NewFetcher(downloads),
		p.threadReplyService,
		p.API,
		resolver.NewYouTubeResolver(youtube),
		resolver.NewInstagramResolver(resolver.NewGraphQLSource(instagram, "")),
		resolver.NewRedditResolver(reddit, config.RedditMuxURL),
		resolver.NewTikTokResolver(tiktok, config.TikTokMirrorURL),
	)
}

func (p *Plugin) getDispatcher() *dispatch.Dispatcher {
	p.configurationLock.RLock()
	defer p.configurationLock.RUnlock()
	return p.dispatcher
}

func (p *Plugin) setDispatcher(d *dispatch.Dispatcher) {
	p.configurationLock.Lock()
	defer p.configurationLock.Unlock()
	p.dispatcher = d
}

// MessageHasBeenPosted is invoked when a message has been posted by a user.
// This hook is called after the message has been committed to the database.
func (p *Plugin) MessageHasBeenPosted(c *plugin.Context, post *model.Post) {
	// Ignore messages from the bot itself to prevent infinite loops
	if p.botService != nil && post.UserId == p.botService.GetBotID() {
		return
	}

	d := p.getDispatcher()
	if d == nil || p.ctx == nil {
		return
	}

	msg := messageFromPost(post)
	config := p.getDispatchConfig()

	// Previews are slow, so the hook returns right away
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		d.Dispatch(p.ctx, msg, config)
	}()
}

// messageFromPost classifies a post. Bot and webhook posts are notices.
func messageFromPost(post *model.Post) dispatch.Message {
	kind := dispatch.KindText
	switch {
	case post.IsSystemMessage():
		kind = dispatch.KindOther
	case post.GetProp(model.PostPropsFromBot) == "true", post.GetProp(model.PostPropsFromWebhook) == "true":
		kind = dispatch.KindNotice
	}

	return dispatch.Message{
		ID:        post.Id,
		ChannelID: post.ChannelId,
		RootID:    post.RootId,
		SenderID:  post.UserId,
		Kind:      kind,
		Body:      post.Message,
	}
}

// See https://developers.mattermost.com/extend/plugins/server/reference/
