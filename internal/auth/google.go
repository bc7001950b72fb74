package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"social-go/internal/config"
)

var ErrExternalIdentity = errors.New("external identity could not be verified")

// ExternalIdentity is what an OAuth provider vouches for.
type ExternalIdentity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// IdentityProvider verifies a user against an external OAuth provider.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for the user's identity.
	Exchange(ctx context.Context, code string) (*ExternalIdentity, error)
	// IdentityFromAccessToken resolves an access token obtained by the client
	// (e.g. a mobile SDK) into the user's identity.
	IdentityFromAccessToken(ctx context.Context, accessToken string) (*ExternalIdentity, error)
}

type googleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider returns an IdentityProvider backed by Google's OAuth2
// endpoints and the v2 userinfo API.
func NewGoogleProvider(cfg config.GoogleConfig) IdentityProvider {
	return &googleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

func (p *googleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *googleProvider) Exchange(ctx context.Context, code string) (*ExternalIdentity, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", ErrExternalIdentity, err)
	}
	return p.fetchUserInfo(ctx, p.oauth.Client(ctx, token))
}

func (p *googleProvider) IdentityFromAccessToken(ctx context.Context, accessToken string) (*ExternalIdentity, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrExternalIdentity)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return p.fetchUserInfo(ctx, oauth2.NewClient(ctx, src))
}

func (p *googleProvider) fetchUserInfo(ctx context.Context, client *http.Client) (*ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo request: %v", ErrExternalIdentity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: userinfo status %d: %s", ErrExternalIdentity, resp.StatusCode, body)
	}

	var info struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %v", ErrExternalIdentity, err)
	}
	if info.Email == "" || !info.VerifiedEmail {
		return nil, fmt.Errorf("%w: email missing or unverified", ErrExternalIdentity)
	}

	return &ExternalIdentity{
		Provider:      "google",
		Subject:       info.ID,
		Email:         strings.ToLower(info.Email),
		EmailVerified: info.VerifiedEmail,
		Name:          info.Name,
		Picture:       info.Picture,
	}, nil
}
