package controllers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"jostrid/config"
	"jostrid/identity"
	"jostrid/models"
	"jostrid/services"
	"jostrid/session"
)

const (
	sessionCookieName    = "jostrid_session"
	accessTokenCookie    = "access_token"
	defaultTokenLifetime = 3600 // seconds, when the IdP omits expires_in
)

// AuthProvider is the slice of the auth service the handlers drive.
type AuthProvider interface {
	AuthorizeURL(codeChallenge string) (string, string, error)
	ExchangeCode(ctx context.Context, creds services.Credentials, scope string) (*identity.TokenResponse, error)
	ExchangeRefreshToken(ctx context.Context, refreshToken, scope string) (*identity.TokenResponse, error)
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

type AuthController struct {
	svc      AuthProvider
	sessions session.Store
	cfg      *config.Config
}

func NewAuthController(svc AuthProvider, sessions session.Store, cfg *config.Config) *AuthController {
	return &AuthController{
		svc:      svc,
		sessions: sessions,
		cfg:      cfg,
	}
}

type loginResponse struct {
	User *models.User `json:"user"`
	*identity.TokenResponse
}

// Redirect starts a login attempt: it generates the PKCE pair and CSRF
// state, parks them in the session and hands the authorization URL to
// the browser.
func (c *AuthController) Redirect(ctx *gin.Context) {
	sid := c.ensureSessionID(ctx)

	verifier := oauth2.GenerateVerifier()
	challenge := oauth2.S256ChallengeFromVerifier(verifier)

	authURL, state, err := c.svc.AuthorizeURL(challenge)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build authorization URL"})
		return
	}

	// The session backend must always be able to hold opaque strings;
	// a failure here is an operational fault, not a user error.
	if err := c.sessions.Set(sid, session.CSRFStateKey, state); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save login state"})
		return
	}
	if err := c.sessions.Set(sid, session.PKCEVerifierKey, verifier); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save login state"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

// Callback completes a login attempt. Every step is a possible failure
// exit; there are no retries, a failed attempt restarts at Redirect.
func (c *AuthController) Callback(ctx *gin.Context) {
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing code or state"})
		return
	}

	sid, err := ctx.Cookie(sessionCookieName)
	if err != nil {
		log.Println("No session cookie on callback")
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No login session"})
		return
	}

	storedState, ok, err := c.sessions.Get(sid, session.CSRFStateKey)
	if err != nil || !ok {
		log.Println("No CSRF token in session")
		c.fail(ctx, &services.SessionError{Key: session.CSRFStateKey})
		return
	}

	// Ensure the CSRF state has not been tampered with.
	if storedState != state {
		log.Printf("Bad state, got %s expected %s", state, storedState)
		c.fail(ctx, &services.CsrfMismatchError{})
		return
	}

	verifier, ok, err := c.sessions.Get(sid, session.PKCEVerifierKey)
	if err != nil || !ok {
		c.fail(ctx, &services.SessionError{Key: session.PKCEVerifierKey})
		return
	}

	// Single use: a replayed callback must restart the whole flow. A
	// failed delete leaves the entries live, so it has to be visible.
	if err := c.sessions.Delete(sid, session.CSRFStateKey); err != nil {
		log.Printf("Warning: failed to clear CSRF state for session: %v", err)
	}
	if err := c.sessions.Delete(sid, session.PKCEVerifierKey); err != nil {
		log.Printf("Warning: failed to clear PKCE verifier for session: %v", err)
	}

	creds := services.Credentials{
		Code:         code,
		PKCEVerifier: verifier,
	}

	token, err := c.svc.ExchangeCode(ctx.Request.Context(), creds, c.cfg.AccessScope)
	if err != nil {
		log.Printf("Failed to acquire token: %v", err)
		ctx.JSON(services.HTTPStatus(err), gin.H{"error": "Failed to acquire token: " + err.Error()})
		return
	}

	user, err := c.svc.Authenticate(ctx.Request.Context(), token.AccessToken)
	if err != nil {
		log.Printf("Failed to authenticate user: %v", err)
		ctx.JSON(services.HTTPStatus(err), gin.H{"error": "Failed to authenticate: " + err.Error()})
		return
	}

	c.setAccessTokenCookie(ctx, token)

	if c.cfg.LoginRedirect {
		ctx.Redirect(http.StatusFound, c.cfg.FrontendURL)
		return
	}

	ctx.JSON(http.StatusOK, loginResponse{User: user, TokenResponse: token})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh trades a refresh token for a fresh access token and renews
// the cookie. The browser keeps the refresh token; it is never stored
// server side.
func (c *AuthController) Refresh(ctx *gin.Context) {
	var req refreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing refresh token"})
		return
	}

	token, err := c.svc.ExchangeRefreshToken(ctx.Request.Context(), req.RefreshToken, c.cfg.AccessScope)
	if err != nil {
		log.Printf("Failed to refresh token: %v", err)
		ctx.JSON(services.HTTPStatus(err), gin.H{"error": "Failed to refresh token: " + err.Error()})
		return
	}

	c.setAccessTokenCookie(ctx, token)
	ctx.JSON(http.StatusOK, token)
}

// Logout removes the access-token cookie. No revocation happens at the
// identity provider.
func (c *AuthController) Logout(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(accessTokenCookie, "", -1, "/", "", false, true)
	ctx.Status(http.StatusOK)
}

func (c *AuthController) fail(ctx *gin.Context, err error) {
	ctx.JSON(services.HTTPStatus(err), gin.H{"error": err.Error()})
}

func (c *AuthController) ensureSessionID(ctx *gin.Context) string {
	if sid, err := ctx.Cookie(sessionCookieName); err == nil && sid != "" {
		return sid
	}

	sid := uuid.NewString()
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(sessionCookieName, sid, int(session.InactivityLifetime.Seconds()), "/", "", false, true)
	return sid
}

func (c *AuthController) setAccessTokenCookie(ctx *gin.Context, token *identity.TokenResponse) {
	maxAge := token.ExpiresIn
	if maxAge <= 0 {
		maxAge = defaultTokenLifetime
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(accessTokenCookie, token.AccessToken, maxAge, "/", "", false, true)
}
