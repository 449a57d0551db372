package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jostrid/identity"
	"jostrid/models"
)

// Credentials are what the callback hands over for the code exchange.
type Credentials struct {
	Code         string
	PKCEVerifier string
}

// AuthService orchestrates the authorization-code exchange, the
// on-behalf-of exchange and the allow-listed user upsert.
type AuthService struct {
	db            *gorm.DB
	idp           *identity.Client
	allowedEmails string
}

func NewAuthService(db *gorm.DB, idp *identity.Client, allowedEmails string) *AuthService {
	return &AuthService{
		db:            db,
		idp:           idp,
		allowedEmails: allowedEmails,
	}
}

// AuthorizeURL builds the IdP authorization URL for the given PKCE
// challenge and returns it with a fresh CSRF state token. No I/O.
func (s *AuthService) AuthorizeURL(codeChallenge string) (string, string, error) {
	state, err := generateState()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state: %w", err)
	}

	return s.idp.AuthCodeURL(state, codeChallenge), state, nil
}

// ExchangeCode performs the authorization-code grant with the PKCE
// verifier. Failures are upstream errors and are never retried here.
func (s *AuthService) ExchangeCode(ctx context.Context, creds Credentials, scope string) (*identity.TokenResponse, error) {
	token, err := s.idp.ExchangeCode(ctx, creds.Code, creds.PKCEVerifier, scope)
	if err != nil {
		return nil, &UpstreamAuthError{Err: err}
	}
	return token, nil
}

// ExchangeRefreshToken performs the refresh-token grant.
func (s *AuthService) ExchangeRefreshToken(ctx context.Context, refreshToken, scope string) (*identity.TokenResponse, error) {
	token, err := s.idp.ExchangeRefreshToken(ctx, refreshToken, scope)
	if err != nil {
		return nil, &UpstreamAuthError{Err: err}
	}
	return token, nil
}

// Authenticate trades the browser's access token for a User.Read-scoped
// one, fetches the user info, enforces the allow-list and upserts the
// local user keyed on the external identity.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	if s.allowedEmails == "" {
		return nil, &ConfigError{Var: "ALLOWED_EMAILS"}
	}

	obo, err := s.idp.AcquireOnBehalfOf(ctx, accessToken, "User.Read")
	if err != nil {
		return nil, &UpstreamAuthError{Err: err}
	}

	info, err := s.idp.FetchUserInfo(ctx, obo.AccessToken)
	if err != nil {
		return nil, &UpstreamAuthError{Err: err}
	}

	if !s.isAllowed(info.Mail) {
		s.audit(models.AuditEventLogin, info.Mail, "denied", "email not in allow-list")
		return nil, &ForbiddenEmailError{Email: info.Mail}
	}

	user, err := s.upsertUser(info)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	s.audit(models.AuditEventLogin, user.Email, "success", "")
	return user, nil
}

func (s *AuthService) isAllowed(email string) bool {
	for _, allowed := range strings.Split(s.allowedEmails, ",") {
		if allowed == email {
			return true
		}
	}
	return false
}

// upsertUser inserts the user on first sight and updates name and email
// on conflict, preserving the local id and phone number.
func (s *AuthService) upsertUser(info *identity.UserInfo) (*models.User, error) {
	user := models.User{
		MicrosoftID: info.ID,
		Name:        info.DisplayName,
		Email:       info.Mail,
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "microsoft_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return nil, err
	}

	// Reload so the local id is correct after a conflict update.
	var persisted models.User
	if err := s.db.Where("microsoft_id = ?", info.ID).First(&persisted).Error; err != nil {
		return nil, err
	}

	return &persisted, nil
}

func (s *AuthService) audit(event, email, status, detail string) {
	entry := models.AuditLog{
		Event:  event,
		Email:  email,
		Status: status,
		Detail: detail,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("Warning: failed to write audit log: %v", err)
	}
}

func generateState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
