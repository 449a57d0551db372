package models

import (
	"time"
)

// User represents a local account, created on first successful sign-in.
// MicrosoftID is the external identity the upsert is keyed on.
type User struct {
	ID          int       `gorm:"primaryKey;autoIncrement" json:"id"`
	MicrosoftID string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Email       string    `gorm:"size:255;not null" json:"email"`
	PhoneNumber *string   `gorm:"size:32" json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Expense represents a single expense or settle-up payment
type Expense struct {
	ID         int              `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string           `gorm:"size:255;not null" json:"name"`
	Total      int              `gorm:"not null" json:"total"` // minor currency units
	Currency   string           `gorm:"size:8;not null" json:"currency"`
	CreatedAt  time.Time        `json:"created_at"`
	IsPayment  bool             `gorm:"default:false" json:"is_payment"`
	PaidBy     int              `gorm:"not null;index" json:"paid_by"`
	CategoryID *int             `gorm:"index" json:"category_id"`
	Payer      User             `gorm:"foreignKey:PaidBy" json:"-"`
	Category   *ExpenseCategory `gorm:"foreignKey:CategoryID" json:"-"`
	Shares     []AccountShare   `gorm:"foreignKey:ExpenseID" json:"-"`
}

func (Expense) TableName() string {
	return "expense"
}

// AccountShare represents one user's share of an expense
type AccountShare struct {
	ExpenseID int `gorm:"primaryKey" json:"expense_id"`
	UserID    int `gorm:"primaryKey" json:"user_id"`
	Share     int `gorm:"not null" json:"share"`
}

func (AccountShare) TableName() string {
	return "account_share"
}

// ExpenseCategory represents a category an expense can be filed under
type ExpenseCategory struct {
	ID   int    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:255;not null;uniqueIndex" json:"name"`
}

func (ExpenseCategory) TableName() string {
	return "expense_category"
}

// Image represents an attachment stored by URL, with free-form tags
type Image struct {
	ID   int      `gorm:"primaryKey;autoIncrement" json:"id"`
	URL  string   `gorm:"size:2048;not null" json:"url"`
	Tags []string `gorm:"serializer:json" json:"tags"`
}

func (Image) TableName() string {
	return "image"
}
