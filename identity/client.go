// Package identity wraps the external OAuth2/OIDC identity provider:
// the authorization and token endpoints, the on-behalf-of exchange and
// the Graph userinfo endpoint.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"jostrid/config"
)

const (
	grantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	scopeUserRead      = "User.Read"
	scopeOfflineAccess = "offline_access"
)

// TokenResponse is the token endpoint reply the rest of the backend
// sees. ExpiresIn is 0 when the provider omitted it.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// OAuthError is an RFC 6749 error body from the token endpoint.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *OAuthError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// UserInfo is the Graph /me payload used to populate the local user.
type UserInfo struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	GivenName         string `json:"givenName"`
	Surname           string `json:"surname"`
	MobilePhone       string `json:"mobilePhone"`
}

// Client talks to the identity provider. Endpoints come from the OIDC
// discovery document fetched once at construction.
type Client struct {
	cfg       *config.Config
	discovery *DiscoveryDocument
	oauth     oauth2.Config
	tokenHTTP *http.Client
	graphHTTP *http.Client
}

// NewClient fetches the discovery document for the configured issuer
// and prepares the OAuth2 client configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	doc, err := FetchDiscoveryDocument(cfg.Issuer)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:       cfg,
		discovery: doc,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{scopeUserRead, scopeOfflineAccess, cfg.AccessScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:  doc.AuthorizationEndpoint,
				TokenURL: doc.TokenEndpoint,
			},
		},
		tokenHTTP: config.TokenClient(),
		graphHTTP: config.GraphClient(),
	}, nil
}

// Discovery returns the provider metadata fetched at construction.
func (c *Client) Discovery() *DiscoveryDocument {
	return c.discovery
}

// AuthCodeURL builds the authorization endpoint URL carrying the CSRF
// state and the PKCE challenge (S256).
func (c *Client) AuthCodeURL(state, codeChallenge string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode performs the authorization-code grant with the PKCE
// verifier, requesting a token for the given scope.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier, scope string) (*TokenResponse, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.tokenHTTP)

	token, err := c.oauth.Exchange(ctx, code,
		oauth2.VerifierOption(verifier),
		oauth2.SetAuthURLParam("scope", scope),
	)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	return fromOAuth2Token(token), nil
}

// ExchangeRefreshToken performs the refresh-token grant for the given
// scope. The scope has to travel in the form body, so this is a plain
// form POST rather than an oauth2.TokenSource.
func (c *Client) ExchangeRefreshToken(ctx context.Context, refreshToken, scope string) (*TokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "refresh_token")
	params.Set("client_id", c.cfg.ClientID)
	params.Set("client_secret", c.cfg.ClientSecret)
	params.Set("refresh_token", refreshToken)
	params.Set("scope", scope)

	token, err := c.postTokenForm(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("refresh token exchange failed: %w", err)
	}

	return token, nil
}

// AcquireOnBehalfOf trades a user access token for a new token scoped to
// a downstream API, without re-prompting the user.
func (c *Client) AcquireOnBehalfOf(ctx context.Context, accessToken, scope string) (*TokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", grantTypeJWTBearer)
	params.Set("client_id", c.cfg.ClientID)
	params.Set("client_secret", c.cfg.ClientSecret)
	params.Set("assertion", accessToken)
	params.Set("scope", scope)
	params.Set("requested_token_use", "on_behalf_of")

	token, err := c.postTokenForm(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("on-behalf-of exchange failed: %w", err)
	}

	return token, nil
}

// postTokenForm sends a form-encoded grant to the token endpoint and
// decodes the reply. Non-200 responses become an OAuthError when the
// body carries one.
func (c *Client) postTokenForm(ctx context.Context, params url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.discovery.TokenEndpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.tokenHTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		oauthErr := new(OAuthError)
		if err := json.Unmarshal(body, oauthErr); err != nil || oauthErr.Code == "" {
			return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
		}
		return nil, oauthErr
	}

	tokenResponse := new(TokenResponse)
	if err := json.Unmarshal(body, tokenResponse); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return tokenResponse, nil
}

// FetchUserInfo calls the Graph userinfo endpoint with the given token.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.GraphURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.graphHTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request returned status %d", resp.StatusCode)
	}

	info := new(UserInfo)
	if err := json.NewDecoder(resp.Body).Decode(info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}

	return info, nil
}

func fromOAuth2Token(token *oauth2.Token) *TokenResponse {
	resp := &TokenResponse{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
	}
	if expiresIn := token.ExpiresIn; expiresIn > 0 {
		resp.ExpiresIn = int(expiresIn)
	}
	return resp
}
