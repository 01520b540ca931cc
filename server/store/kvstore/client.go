package kvstore

import (
	"github.com/mattermost/mattermost/server/public/pluginapi"
	"github.com/pkg/errors"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/dispatch"
)

// ConfigOverrideKey holds the dispatch config saved through the admin API.
const ConfigOverrideKey = "config_override"

// We expose our calls to the KVStore pluginapi methods through this interface for testability and stability.
// This allows us to better control which values are stored with which keys.

type Client struct {
	client *pluginapi.Client
}

func NewKVStore(client *pluginapi.Client) KVStore {
	return Client{
		client: client,
	}
}

func (kv Client) GetConfigOverride() (*dispatch.Config, error) {
	var cfg *dispatch.Config
	if err := kv.client.KV.Get(ConfigOverrideKey, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to get config override")
	}
	return cfg, nil
}

func (kv Client) SetConfigOverride(cfg dispatch.Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config override")
	}
	if _, err := kv.client.KV.Set(ConfigOverrideKey, cfg); err != nil {
		return errors.Wrap(err, "failed to set config override")
	}
	return nil
}

func (kv Client) DeleteConfigOverride() error {
	if err := kv.client.KV.Delete(ConfigOverrideKey); err != nil {
		return errors.Wrap(err, "failed to delete config override")
	}
	return nil
}
