package models

// UserPoints tracks the per-user achievement point total shown on the profile
// (denormalized for performance). TotalPoints is a monotonic counter updated
// only through atomic adds.
type UserPoints struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string `gorm:"uniqueIndex:idx_user_points,priority:1;not null" json:"user_id"`
	TenantID    string `gorm:"uniqueIndex:idx_user_points,priority:2;not null" json:"tenant_id"`
	TotalPoints int64  `gorm:"not null;default:0" json:"total_points"`

	Timestamps
}
