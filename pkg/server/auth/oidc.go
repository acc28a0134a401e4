package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// OIDCAuthenticator guards the admin surface. Tokens are resolved against
// the issuer's userinfo endpoint; there is no local key material to rotate.
type OIDCAuthenticator struct {
	config     *oauth2.Config
	issuer     string
	adminGroup string
	httpClient *http.Client
}

func NewOIDCAuthenticator(issuer, clientID, clientSecret, adminGroup, redirectURL string) (*OIDCAuthenticator, error) {
	if issuer == "" || clientID == "" {
		return nil, fmt.Errorf("oidc configuration incomplete: issuer and client id are required")
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("%s/authorize", issuer),
			TokenURL: fmt.Sprintf("%s/token", issuer),
		},
		Scopes: []string{"openid", "profile", "email", "groups"},
	}

	return &OIDCAuthenticator{
		config:     config,
		issuer:     issuer,
		adminGroup: adminGroup,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Claims is the subset of the userinfo response the platform cares about.
type Claims struct {
	Subject string   `json:"sub"`
	Email   string   `json:"email"`
	Groups  []string `json:"groups"`
}

func (a *OIDCAuthenticator) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.issuer+"/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token rejected by issuer: status %d", resp.StatusCode)
	}

	var claims Claims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("malformed userinfo response: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("userinfo response missing subject")
	}
	return &claims, nil
}

// IsAdmin reports whether the claims carry the configured admin group. An
// empty configured group means every authenticated user is an admin, which
// is only sensible for local development.
func (a *OIDCAuthenticator) IsAdmin(claims *Claims) bool {
	if a.adminGroup == "" {
		return true
	}
	for _, g := range claims.Groups {
		if g == a.adminGroup {
			return true
		}
	}
	return false
}

// AuthCodeURL exposes the issuer login URL for browser flows.
func (a *OIDCAuthenticator) AuthCodeURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token.
func (a *OIDCAuthenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return a.config.Exchange(ctx, code)
}
