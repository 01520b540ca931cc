package kvstore

import "github.com/fmartingr/mattermost-plugin-media-preview/server/dispatch"

type KVStore interface {
	// GetConfigOverride returns the admin override, or nil when none is stored.
	GetConfigOverride() (*dispatch.Config, error)
	SetConfigOverride(cfg dispatch.Config) error
	DeleteConfigOverride() error
}
