package models

import (
	"time"
)

// ScoringWeight is a per-tenant override of the point value for one activity
// type. The table is a read-only mirror of the admin settings store, kept
// fresh by the weights sync worker; the scoring engine reads it on every call.
type ScoringWeight struct {
	ID           string       `gorm:"primaryKey;type:uuid" json:"id"`
	TenantID     string       `gorm:"uniqueIndex:idx_tenant_weight,priority:1;not null" json:"tenant_id"`
	ActivityType ActivityType `gorm:"uniqueIndex:idx_tenant_weight,priority:2;size:50;not null" json:"activity_type"`
	Points       int64        `gorm:"not null" json:"points"`
	Enabled      bool         `gorm:"not null" json:"enabled"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// DefaultWeights apply when a tenant has no override row.
var DefaultWeights = map[ActivityType]int64{
	ActivitySpinCompletion:     100,
	ActivityProposalSent:       50,
	ActivityProposalSigned:     200,
	ActivityOpportunityCreated: 75,
	ActivityTaskCompleted:      25,
	ActivityDealClosed:         500,
	ActivityAIUsage:            10,
}
