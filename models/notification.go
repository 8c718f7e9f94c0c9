package models

import (
	"time"
)

// Notification is the outbound feed for the UI toast layer. The achievement
// engine appends one row per grant; the SSE stream tails the table per user.
type Notification struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"index;not null" json:"user_id"`
	TenantID  string    `gorm:"index;not null" json:"tenant_id"`
	Type      string    `gorm:"size:50;not null" json:"type"` // "achievement_granted"
	Title     string    `gorm:"not null" json:"title"`
	Message   string    `json:"message"`
	Points    int64     `json:"points"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
