package identity

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// DiscoveryDocument is the subset of the OIDC discovery metadata this
// backend relies on.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JwksURI               string `json:"jwks_uri"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
}

// FetchDiscoveryDocument loads the OIDC discovery document published by
// the identity provider at issuer/.well-known/openid-configuration.
func FetchDiscoveryDocument(issuer string) (*DiscoveryDocument, error) {
	url := issuer + "/.well-known/openid-configuration"

	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discovery document from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery document request to %s returned status %d", url, resp.StatusCode)
	}

	doc := new(DiscoveryDocument)
	if err := json.NewDecoder(resp.Body).Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}

	if doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" {
		return nil, fmt.Errorf("discovery document from %s is missing endpoints", url)
	}

	return doc, nil
}
