package models

import (
	"time"
)

// AuditLog records authentication events (sign-ins, denials)
type AuditLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Event     string    `gorm:"size:50;index" json:"event"`
	Email     string    `gorm:"size:255" json:"email"`
	Status    string    `gorm:"size:20" json:"status"`
	Detail    string    `gorm:"type:text" json:"detail"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

const AuditEventLogin = "login"
