package main

import (
	"context"
	"fmt"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"
	"github.com/pkg/errors"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/dispatch"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

// AcknowledgeEmoji is the reaction the bot leaves on posts it is working on.
const AcknowledgeEmoji = "eyes"

// ThreadReplyService publishes previews as replies in the thread of the original post.
type ThreadReplyService struct {
	api   plugin.API
	botID string
}

// NewThreadReplyService creates a new thread reply service
func NewThreadReplyService(api plugin.API, botID string) *ThreadReplyService {
	return &ThreadReplyService{
		api:   api,
		botID: botID,
	}
}

var _ dispatch.Publisher = (*ThreadReplyService)(nil)

// Acknowledge reacts to the post. Reacting twice with the same emoji is a no-op.
func (t *ThreadReplyService) Acknowledge(_ context.Context, msg dispatch.Message) error {
	_, appErr := t.api.AddReaction(&model.Reaction{
		UserId:    t.botID,
		PostId:    msg.ID,
		ChannelId: msg.ChannelID,
		EmojiName: AcknowledgeEmoji,
	})
	if appErr != nil {
		return errors.Wrap(appErr, "failed to add reaction")
	}
	return nil
}

// Reply posts text in the thread of msg.
func (t *ThreadReplyService) Reply(_ context.Context, msg dispatch.Message, text string) error {
	if err := t.createReply(msg, text, nil); err != nil {
		return errors.Wrap(err, "failed to create thread reply")
	}
	return nil
}

// PublishMedia uploads the asset to the channel and attaches it to a thread reply.
func (t *ThreadReplyService) PublishMedia(_ context.Context, msg dispatch.Message, asset *social.MediaAsset) error {
	if asset == nil {
		return errors.New("media asset is nil")
	}

	fileInfo, appErr := t.api.UploadFile(asset.Data, msg.ChannelID, asset.Filename)
	if appErr != nil {
		return errors.Wrap(appErr, "failed to upload file to Mattermost")
	}

	if err := t.createReply(msg, "", []string{fileInfo.Id}); err != nil {
		return errors.Wrap(err, "failed to create thread reply with attachment")
	}

	t.api.LogDebug("Published media",
		"postID", msg.ID,
		"filename", asset.Filename,
		"mimeType", asset.MimeType,
		"size", formatFileSize(asset.Size),
	)
	return nil
}

func (t *ThreadReplyService) createReply(msg dispatch.Message, text string, fileIDs []string) error {
	replyPost := &model.Post{
		UserId:    t.botID,
		ChannelId: msg.ChannelID,
		RootId:    threadRoot(msg),
		Message:   text,
		FileIds:   fileIDs,
		CreateAt:  model.GetMillis(),
	}

	if _, appErr := t.api.CreatePost(replyPost); appErr != nil {
		return appErr
	}
	return nil
}

// threadRoot returns the root of the thread msg belongs to. A post that is
// already a reply keeps its root, otherwise the post itself becomes the root.
func threadRoot(msg dispatch.Message) string {
	if msg.RootID != "" {
		return msg.RootID
	}
	return msg.ID
}

// formatFileSize formats file size in human-readable format
func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
