package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattermost/mattermost/server/public/plugin"

	"github.com/fmartingr/mattermost-plugin-media-preview/server/dispatch"
	"github.com/fmartingr/mattermost-plugin-media-preview/server/social"
)

// ServeHTTP serves the plugin REST API.
// The root URL is <siteUrl>/plugins/com.github.fmartingr.media-preview/api/v1/.
func (p *Plugin) ServeHTTP(c *plugin.Context, w http.ResponseWriter, r *http.Request) {
	router := mux.NewRouter()

	// Middleware to require that the user is logged in
	router.Use(p.MattermostAuthorizationRequired)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()

	apiRouter.HandleFunc("/platforms", p.GetPlatforms).Methods(http.MethodGet)

	adminRouter := apiRouter.NewRoute().Subrouter()
	adminRouter.Use(p.SystemAdminRequired)
	adminRouter.HandleFunc("/config", p.GetConfig).Methods(http.MethodGet)
	adminRouter.HandleFunc("/config", p.UpdateConfig).Methods(http.MethodPost)
	adminRouter.HandleFunc("/config", p.DeleteConfig).Methods(http.MethodDelete)
	adminRouter.HandleFunc("/resolve", p.Resolve).Methods(http.MethodGet)

	router.ServeHTTP(w, r)
}

func (p *Plugin) MattermostAuthorizationRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("Mattermost-User-ID")
		if userID == "" {
			http.Error(w, "Not authorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (p *Plugin) SystemAdminRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, appErr := p.API.GetUser(r.Header.Get("Mattermost-User-ID"))
		if appErr != nil || !user.IsInRole(model.SystemAdminRoleId) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type platformStatus struct {
	Platform social.Platform `json:"platform"`
	dispatch.PlatformConfig
}

// GetPlatforms returns the supported platforms with the toggles currently in effect.
func (p *Plugin) GetPlatforms(w http.ResponseWriter, r *http.Request) {
	platforms := social.DispatchOrder
	if d := p.getDispatcher(); d != nil {
		platforms = d.Platforms()
	}

	config := p.getDispatchConfig()
	statuses := make([]platformStatus, 0, len(platforms))
	for _, platform := range platforms {
		statuses = append(statuses, platformStatus{
			Platform:       platform,
			PlatformConfig: config.Platform(platform),
		})
	}

	p.writeJSON(w, http.StatusOK, statuses)
}

type configResponse struct {
	Settings  dispatch.Config  `json:"settings"`
	Override  *dispatch.Config `json:"override"`
	Effective dispatch.Config  `json:"effective"`
}

func (p *Plugin) configResponse() (*configResponse, error) {
	override, err := p.kvstore.GetConfigOverride()
	if err != nil {
		return nil, err
	}

	settings := p.getConfiguration().DispatchConfig()
	response := &configResponse{
		Settings:  settings,
		Override:  override,
		Effective: settings,
	}
	if override != nil {
		response.Effective = *override
	}
	return response, nil
}

// GetConfig returns the plugin settings, the stored override and the resulting toggles (admin only)
func (p *Plugin) GetConfig(w http.ResponseWriter, r *http.Request) {
	response, err := p.configResponse()
	if err != nil {
		p.API.LogError("Failed to load config override", "error", err.Error())
		http.Error(w, "Failed to load configuration", http.StatusInternalServerError)
		return
	}

	p.writeJSON(w, http.StatusOK, response)
}

// UpdateConfig stores a config override that takes precedence over the plugin settings (admin only)
func (p *Plugin) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var override dispatch.Config
	if err := json.NewDecoder(r.Body).Decode(&override); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := override.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := p.kvstore.SetConfigOverride(override); err != nil {
		p.API.LogError("Failed to save config override", "error", err.Error())
		http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}
	p.API.LogInfo("Config override updated", "userID", r.Header.Get("Mattermost-User-ID"))

	p.GetConfig(w, r)
}

// DeleteConfig removes the config override so the plugin settings apply again (admin only)
func (p *Plugin) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := p.kvstore.DeleteConfigOverride(); err != nil {
		p.API.LogError("Failed to delete config override", "error", err.Error())
		http.Error(w, "Failed to delete configuration", http.StatusInternalServerError)
		return
	}
	p.API.LogInfo("Config override removed", "userID", r.Header.Get("Mattermost-User-ID"))

	p.GetConfig(w, r)
}

// Resolve resolves the links in the url parameter without posting anything (admin only)
func (p *Plugin) Resolve(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("url")
	if text == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	d := p.getDispatcher()
	if d == nil {
		http.Error(w, "Plugin is not active", http.StatusServiceUnavailable)
		return
	}

	p.writeJSON(w, http.StatusOK, d.Preview(r.Context(), text))
}

func (p *Plugin) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		p.API.LogError("Failed to encode response", "error", err.Error())
	}
}
