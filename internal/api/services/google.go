// Package services holds the clients for the identity providers used by the
// auth handlers.
package services

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/rohits-web03/estately/internal/config"
)

// NewGoogleOAuthConfig returns nil when no client id is configured.
func NewGoogleOAuthConfig(cfg config.GoogleConfig) *oauth2.Config {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}
