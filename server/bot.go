package main

import (
	"os"
	"path/filepath"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"
	"github.com/pkg/errors"
)

const (
	// BotUsername is the username for the media preview bot
	BotUsername = "media-preview"
	// BotDisplayName is the display name for the media preview bot
	BotDisplayName = "Media Preview"
	// BotDescription is the description for the media preview bot
	BotDescription = "Posts previews of Reddit, Instagram, YouTube and TikTok links"
)

// BotService manages the bot account that owns previews and reactions.
type BotService struct {
	api     plugin.API
	botID   string
	botUser *model.User
}

// NewBotService creates a new bot service
func NewBotService(api plugin.API) *BotService {
	return &BotService{
		api: api,
	}
}

// EnsureBotExists looks up the bot account and creates it when missing.
func (b *BotService) EnsureBotExists() error {
	user, appErr := b.api.GetUserByUsername(BotUsername)
	if appErr == nil && user != nil {
		b.botID = user.Id
		b.botUser = user
		b.refreshProfileImage()
		return nil
	}

	botUser := &model.User{
		Username:            BotUsername,
		FirstName:           BotDisplayName,
		Email:               BotUsername + "@localhost",
		Password:            model.NewId(),
		Nickname:            BotDisplayName,
		Position:            BotDescription,
		Roles:               model.SystemUserRoleId,
		Locale:              "en",
		DisableWelcomeEmail: true,
	}

	createdUser, appErr := b.api.CreateUser(botUser)
	if appErr != nil {
		return errors.Wrap(appErr, "failed to create bot user")
	}

	b.botID = createdUser.Id
	b.botUser = createdUser
	b.refreshProfileImage()

	return nil
}

// refreshProfileImage only logs failures.
func (b *BotService) refreshProfileImage() {
	if err := b.setBotProfileImage(); err != nil {
		b.api.LogWarn("Failed to set bot profile image", "error", err.Error())
	}
}

// setBotProfileImage sets the bot's profile image from the plugin's icon asset
func (b *BotService) setBotProfileImage() error {
	bundlePath, err := b.api.GetBundlePath()
	if err != nil {
		return errors.Wrap(err, "failed to get bundle path")
	}

	iconPath := filepath.Join(bundlePath, "assets", "icon.png")
	iconData, err := os.ReadFile(iconPath)
	if err != nil {
		return errors.Wrap(err, "failed to read icon file")
	}

	if appErr := b.api.SetProfileImage(b.botID, iconData); appErr != nil {
		return errors.Wrap(appErr, "failed to set profile image")
	}

	return nil
}

// GetBotUser returns the bot user
func (b *BotService) GetBotUser() *model.User {
	return b.botUser
}

// GetBotID returns the bot user ID
func (b *BotService) GetBotID() string {
	return b.botID
}
