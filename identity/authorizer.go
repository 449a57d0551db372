package identity

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

const claimsContextKey = "identity.claims"

// Policy is what a protected request must satisfy: the token audience
// must equal Audience and the scp claim must equal Scope.
type Policy struct {
	Audience string
	Scope    string
}

// Claims are the decoded token claims handlers can read after the
// authorizer has passed a request through.
type Claims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	Scope             string `json:"scp"`
	ObjectID          string `json:"oid"`
}

// Authorizer validates bearer tokens against the identity provider's
// published signing keys.
type Authorizer struct {
	jwksURL string
	keys    *jwk.Cache
	policy  Policy
	parser  *jwt.Parser
}

// NewAuthorizer prepares an auto-refreshing JWKS cache for the given
// URL. The context bounds the lifetime of the cache refresher.
func NewAuthorizer(ctx context.Context, jwksURL string, policy Policy) (*Authorizer, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL); err != nil {
		return nil, fmt.Errorf("failed to register JWKS URL: %w", err)
	}

	return &Authorizer{
		jwksURL: jwksURL,
		keys:    cache,
		policy:  policy,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithAudience(policy.Audience),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Middleware rejects requests without a valid token. The credential is
// read from the Authorization header, falling back to the access_token
// cookie set at login.
func (a *Authorizer) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw := tokenFromRequest(ctx)
		if raw == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing credentials"})
			return
		}

		claims := new(Claims)
		_, err := a.parser.ParseWithClaims(raw, claims, a.keyFor(ctx.Request.Context()))
		if err != nil {
			log.Printf("Rejected token: %v", err)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		if claims.Scope != a.policy.Scope {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing required scope"})
			return
		}

		ctx.Set(claimsContextKey, claims)
		ctx.Next()
	}
}

// ClaimsFromContext returns the claims the middleware attached.
func ClaimsFromContext(ctx *gin.Context) (*Claims, bool) {
	v, ok := ctx.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

func (a *Authorizer) keyFor(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("token header missing kid")
		}

		keySet, err := a.keys.Get(ctx, a.jwksURL)
		if err != nil {
			return nil, fmt.Errorf("failed to get JWKS: %w", err)
		}

		key, found := keySet.LookupKeyID(kid)
		if !found {
			return nil, fmt.Errorf("key ID %s not found in JWKS", kid)
		}

		var rawKey interface{}
		if err := key.Raw(&rawKey); err != nil {
			return nil, fmt.Errorf("failed to get raw key: %w", err)
		}

		return rawKey, nil
	}
}

func tokenFromRequest(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	cookie, err := ctx.Cookie("access_token")
	if err != nil {
		return ""
	}
	return cookie
}
