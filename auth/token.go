package auth

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// tokenFromFragment extracts the id_token parameter from a redirect URL
// fragment. Returns the empty string when the fragment carries no token.
func tokenFromFragment(fragment string) string {
	values, err := url.ParseQuery(strings.TrimPrefix(fragment, "#"))
	if err != nil {
		return ""
	}
	return values.Get("id_token")
}

// IdentityToken is a decoded OpenID identity token. The signature is not
// verified here; the proving service and the ledger verify the token
// cryptographically, the gateway only needs its claims.
type IdentityToken struct {
	Raw   string
	Iss   string
	Sub   string
	Aud   string
	Nonce string
}

// decodeIdentityToken parses the raw JWT and extracts the claims the login
// flow depends on. Subject and audience are mandatory.
func decodeIdentityToken(raw string) (*IdentityToken, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("parse identity token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("missing subject claim")
	}
	aud, err := claims.GetAudience()
	if err != nil || len(aud) == 0 || aud[0] == "" {
		return nil, fmt.Errorf("missing audience claim")
	}
	iss, err := claims.GetIssuer()
	if err != nil {
		return nil, fmt.Errorf("missing issuer claim")
	}
	token := &IdentityToken{
		Raw: raw,
		Iss: iss,
		Sub: sub,
		Aud: aud[0],
	}
	if nonce, ok := claims["nonce"].(string); ok {
		token.Nonce = nonce
	}
	return token, nil
}
