package session

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jostrid/models"
)

// GormStore keeps session values in the login_sessions table so the
// handshake survives a process restart and works across replicas.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(sessionID, key string) (string, bool, error) {
	var row models.LoginSession
	err := s.db.Where("session_id = ? AND session_key = ?", sessionID, key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load session value: %w", err)
	}

	if time.Now().After(row.ExpiresAt) {
		s.db.Delete(&row)
		return "", false, nil
	}

	return row.Value, true, nil
}

func (s *GormStore) Set(sessionID, key, value string) error {
	row := models.LoginSession{
		SessionID: sessionID,
		Key:       key,
		Value:     value,
		ExpiresAt: time.Now().Add(InactivityLifetime),
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "session_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save session value: %w", err)
	}

	return nil
}

func (s *GormStore) Delete(sessionID, key string) error {
	return s.db.Where("session_id = ? AND session_key = ?", sessionID, key).
		Delete(&models.LoginSession{}).Error
}

// CleanupExpired removes entries past their inactivity expiry.
func (s *GormStore) CleanupExpired() error {
	result := s.db.Where("expires_at < ?", time.Now()).Delete(&models.LoginSession{})
	return result.Error
}

// StartCleanup sweeps expired entries on the given interval until the
// channel is closed.
func (s *GormStore) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.CleanupExpired(); err != nil {
					log.Printf("Warning: session cleanup failed: %v", err)
				}
			case <-stop:
				return
			}
		}
	}()
}
