package auth

import (
	"fmt"
	"net/url"

	"github.com/zkpoll/zkvote/types"
)

// ProviderConfig holds everything needed to build an authorization URL for
// one OpenID provider. No two providers share a client id.
type ProviderConfig struct {
	// AuthEndpoint is the provider's OAuth authorization endpoint.
	AuthEndpoint string
	// ClientID is the application's client id registered with the provider.
	ClientID string
}

// Providers maps provider identifiers to their configuration. Adding a
// provider (including university SSO endpoints) is a configuration change,
// not a code change.
type Providers map[types.OpenIDProvider]ProviderConfig

// DefaultAuthEndpoints are the well-known authorization endpoints for the
// built-in providers. Client ids always come from configuration.
var DefaultAuthEndpoints = map[types.OpenIDProvider]string{
	types.ProviderGoogle:   "https://accounts.google.com/o/oauth2/v2/auth",
	types.ProviderTwitch:   "https://id.twitch.tv/oauth2/authorize",
	types.ProviderFacebook: "https://www.facebook.com/v19.0/dialog/oauth",
}

// authorizationURL builds the provider redirect URL with the fixed OAuth
// parameters and the session nonce.
func (p ProviderConfig) authorizationURL(redirectURI, nonce string) (string, error) {
	base, err := url.Parse(p.AuthEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid auth endpoint %q: %w", p.AuthEndpoint, err)
	}
	params := url.Values{}
	params.Set("client_id", p.ClientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "id_token")
	params.Set("scope", "openid")
	params.Set("nonce", nonce)
	base.RawQuery = params.Encode()
	return base.String(), nil
}
