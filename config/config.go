package config

import (
	"fmt"
	"os"
	"strings"
)

// Config carries everything the server reads from the environment. It is
// built once in main and handed to the constructors that need it;
// request-handling code never reads the environment directly.
type Config struct {
	// Confidential OAuth2 client credentials. Both are required.
	ClientID     string
	ClientSecret string

	// Tenant of the Microsoft identity platform authority.
	Tenant string

	// Issuer of the identity provider; the OIDC discovery document lives
	// at Issuer + "/.well-known/openid-configuration".
	Issuer string

	// RedirectURL is where the IdP sends the browser back to.
	RedirectURL string

	// FrontendURL is the application root the browser lands on after
	// login, and the allowed CORS origin.
	FrontendURL string

	// LoginRedirect switches the callback between redirect mode (302 to
	// FrontendURL) and API-response mode (JSON user+token body).
	LoginRedirect bool

	// AllowedEmails is the raw comma-separated allow-list. It is parsed
	// at authentication time, not at startup.
	AllowedEmails string

	// AccessScope is the application scope requested from the IdP.
	AccessScope string

	// Audience and RequiredScope are enforced on every protected request.
	Audience      string
	RequiredScope string

	// GraphURL is the userinfo endpoint of the identity provider.
	GraphURL string

	Port   string
	DBType string
	DBPath string
	DBDSN  string
}

const (
	defaultTenant      = "consumers"
	defaultFrontendURL = "http://localhost:5173"
	defaultRedirectURL = "http://localhost:3000/oauth/callback"
	defaultAccessScope = "api://jostrid-api/Jostrid.Access"
	defaultAudience    = "api://jostrid-api"
	defaultScopeClaim  = "Jostrid.Access"
	defaultGraphURL    = "https://graph.microsoft.com/v1.0/me"
)

// Load reads the process environment into a Config. It fails when the
// confidential client credentials are missing; everything else has a
// default. ALLOWED_EMAILS is deliberately not validated here.
func Load() (*Config, error) {
	clientID := os.Getenv("CLIENT_ID")
	if clientID == "" {
		return nil, fmt.Errorf("CLIENT_ID should be provided")
	}
	clientSecret := os.Getenv("CLIENT_SECRET")
	if clientSecret == "" {
		return nil, fmt.Errorf("CLIENT_SECRET should be provided")
	}

	tenant := getEnv("TENANT", defaultTenant)

	cfg := &Config{
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		Tenant:        tenant,
		Issuer:        getEnv("ISSUER", "https://login.microsoftonline.com/"+tenant+"/v2.0"),
		RedirectURL:   getEnv("REDIRECT_URL", defaultRedirectURL),
		FrontendURL:   getEnv("FRONTEND_URL", defaultFrontendURL),
		LoginRedirect: strings.EqualFold(os.Getenv("LOGIN_REDIRECT"), "true"),
		AllowedEmails: os.Getenv("ALLOWED_EMAILS"),
		AccessScope:   getEnv("ACCESS_SCOPE", defaultAccessScope),
		Audience:      getEnv("AUDIENCE", defaultAudience),
		RequiredScope: getEnv("REQUIRED_SCOPE", defaultScopeClaim),
		GraphURL:      getEnv("GRAPH_URL", defaultGraphURL),
		Port:          getEnv("PORT", "3000"),
		DBType:        getEnv("DB_TYPE", "sqlite"),
		DBPath:        getEnv("DB_PATH", "jostrid.db"),
		DBDSN:         os.Getenv("DB_DSN"),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
