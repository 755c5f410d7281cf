package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence. Verification and Price are jsonb because
// the upstream marketplace documents carry free-form sub-documents there.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string
	Email        string `gorm:"index"`
	Role         string
	Verification datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time
}

type ThreadModel struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"not null;index"`
	LastMessage string `gorm:"type:text"`
	Language    string
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type MessageModel struct {
	ID        string    `gorm:"primaryKey"`
	ThreadID  string    `gorm:"not null;index"`
	Sender    string    `gorm:"not null"`
	Text      string    `gorm:"type:text;not null"`
	Language  string
	CreatedAt time.Time `gorm:"not null;index"`
}

type BookingModel struct {
	ID         string `gorm:"primaryKey"`
	CustomerID string `gorm:"index"`
	ProviderID string `gorm:"index"`
	Status     string
	Price      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"not null;index"`
}
