package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"jostrid/config"
	"jostrid/identity"
	"jostrid/models"
)

type fakeIdP struct {
	server   *httptest.Server
	oboFails bool
	userInfo map[string]interface{}
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	idp := &fakeIdP{
		userInfo: map[string]interface{}{
			"id":          "ms-id-1",
			"displayName": "Test Person",
			"mail":        "test@example.com",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 idp.server.URL,
			"authorization_endpoint": idp.server.URL + "/authorize",
			"token_endpoint":         idp.server.URL + "/token",
			"jwks_uri":               idp.server.URL + "/keys",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		w.Header().Set("Content-Type", "application/json")

		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			if r.PostForm.Get("code") != "validcode" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "user-token",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case "refresh_token":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "refreshed-token",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case "urn:ietf:params:oauth:grant-type:jwt-bearer":
			if idp.oboFails {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "obo-token",
				"token_type":   "Bearer",
				"expires_in":   600,
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "unsupported_grant_type"})
		}
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer obo-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(idp.userInfo)
	})

	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func (f *fakeIdP) client(t *testing.T) *identity.Client {
	t.Helper()
	client, err := identity.NewClient(&config.Config{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		Issuer:       f.server.URL,
		RedirectURL:  "http://localhost:3000/oauth/callback",
		AccessScope:  "api://jostrid-api/Jostrid.Access",
		GraphURL:     f.server.URL + "/me",
	})
	if err != nil {
		t.Fatal("NewClient failed:", err)
	}
	return client
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatal("failed to open test database:", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.AuditLog{}); err != nil {
		t.Fatal("failed to migrate test database:", err)
	}
	return db
}

func newTestService(t *testing.T, allowedEmails string) (*AuthService, *gorm.DB, *fakeIdP) {
	t.Helper()
	idp := newFakeIdP(t)
	db := newTestDB(t)
	return NewAuthService(db, idp.client(t), allowedEmails), db, idp
}

func TestAuthorizeURL(t *testing.T) {
	service, _, _ := newTestService(t, "test@example.com")

	rawURL, state, err := service.AuthorizeURL("challenge-xyz")
	if err != nil {
		t.Fatal("AuthorizeURL failed:", err)
	}
	if state == "" {
		t.Error("expected a non-empty state")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal("failed to parse URL:", err)
	}
	q := parsed.Query()
	if q.Get("state") != state {
		t.Errorf("state in URL = %q, want %q", q.Get("state"), state)
	}
	if q.Get("code_challenge") != "challenge-xyz" {
		t.Errorf("code_challenge = %q", q.Get("code_challenge"))
	}
}

func TestAuthorizeURLStateIsFresh(t *testing.T) {
	service, _, _ := newTestService(t, "test@example.com")

	_, first, err := service.AuthorizeURL("c")
	if err != nil {
		t.Fatal(err)
	}
	_, second, err := service.AuthorizeURL("c")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("expected a different state per call")
	}
}

func TestExchangeCode(t *testing.T) {
	service, _, _ := newTestService(t, "test@example.com")

	token, err := service.ExchangeCode(context.Background(),
		Credentials{Code: "validcode", PKCEVerifier: "verifier-1"},
		"api://jostrid-api/Jostrid.Access")
	if err != nil {
		t.Fatal("ExchangeCode failed:", err)
	}
	if token.AccessToken != "user-token" {
		t.Errorf("AccessToken = %q", token.AccessToken)
	}
}

func TestExchangeCodeUpstreamFailure(t *testing.T) {
	service, _, _ := newTestService(t, "test@example.com")

	_, err := service.ExchangeCode(context.Background(),
		Credentials{Code: "badcode", PKCEVerifier: "verifier-1"}, "scope")
	if err == nil {
		t.Fatal("expected error for rejected code")
	}

	var upstream *UpstreamAuthError
	if !errors.As(err, &upstream) {
		t.Errorf("expected UpstreamAuthError, got %T", err)
	}
}

func TestExchangeRefreshToken(t *testing.T) {
	service, _, _ := newTestService(t, "test@example.com")

	token, err := service.ExchangeRefreshToken(context.Background(), "refresh-1", "User.Read")
	if err != nil {
		t.Fatal("ExchangeRefreshToken failed:", err)
	}
	if token.AccessToken != "refreshed-token" {
		t.Errorf("AccessToken = %q", token.AccessToken)
	}
}

func TestAuthenticateCreatesUser(t *testing.T) {
	service, db, _ := newTestService(t, "test@example.com")

	user, err := service.Authenticate(context.Background(), "user-token")
	if err != nil {
		t.Fatal("Authenticate failed:", err)
	}
	if user.Email != "test@example.com" {
		t.Errorf("Email = %q", user.Email)
	}
	if user.Name != "Test Person" {
		t.Errorf("Name = %q", user.Name)
	}
	if user.ID == 0 {
		t.Error("expected the persisted user to have an id")
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}
}

func TestAuthenticateUpsertsOnSecondLogin(t *testing.T) {
	service, db, idp := newTestService(t, "test@example.com")

	first, err := service.Authenticate(context.Background(), "user-token")
	if err != nil {
		t.Fatal("first Authenticate failed:", err)
	}

	// The IdP now reports a changed display name for the same identity.
	idp.userInfo["displayName"] = "Renamed Person"

	second, err := service.Authenticate(context.Background(), "user-token")
	if err != nil {
		t.Fatal("second Authenticate failed:", err)
	}
	if second.ID != first.ID {
		t.Errorf("id changed across logins: %d != %d", second.ID, first.ID)
	}
	if second.Name != "Renamed Person" {
		t.Errorf("Name = %q, want %q", second.Name, "Renamed Person")
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}
}

func TestAuthenticateAllowListMultipleEntries(t *testing.T) {
	service, _, _ := newTestService(t, "other@example.com,test@example.com")

	if _, err := service.Authenticate(context.Background(), "user-token"); err != nil {
		t.Error("expected allow-listed email to pass:", err)
	}
}

func TestAuthenticateForbiddenEmail(t *testing.T) {
	service, db, _ := newTestService(t, "someone-else@example.com")

	_, err := service.Authenticate(context.Background(), "user-token")
	if err == nil {
		t.Fatal("expected error for email outside the allow-list")
	}

	var forbidden *ForbiddenEmailError
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ForbiddenEmailError, got %T", err)
	}
	if forbidden.Email != "test@example.com" {
		t.Errorf("Email = %q", forbidden.Email)
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Errorf("user count = %d, want 0", count)
	}

	var denied models.AuditLog
	if err := db.Where("status = ?", "denied").First(&denied).Error; err != nil {
		t.Error("expected a denied audit entry:", err)
	}
}

func TestAuthenticateCaseSensitiveAllowList(t *testing.T) {
	service, _, _ := newTestService(t, "Test@Example.com")

	_, err := service.Authenticate(context.Background(), "user-token")
	var forbidden *ForbiddenEmailError
	if !errors.As(err, &forbidden) {
		t.Errorf("expected ForbiddenEmailError for a case mismatch, got %v", err)
	}
}

func TestAuthenticateEmptyAllowList(t *testing.T) {
	service, _, _ := newTestService(t, "")

	_, err := service.Authenticate(context.Background(), "user-token")
	var confErr *ConfigError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if confErr.Var != "ALLOWED_EMAILS" {
		t.Errorf("Var = %q", confErr.Var)
	}
}

func TestAuthenticateOnBehalfOfFailure(t *testing.T) {
	service, db, idp := newTestService(t, "test@example.com")
	idp.oboFails = true

	_, err := service.Authenticate(context.Background(), "user-token")
	var upstream *UpstreamAuthError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamAuthError, got %v", err)
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 0 {
		t.Errorf("user count = %d, want 0", count)
	}
}
