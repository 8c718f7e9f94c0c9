package models

import (
	"time"
)

// ActivityType is the closed set of CRM actions the engine scores.
type ActivityType string

const (
	ActivitySpinCompletion     ActivityType = "spin_completion"
	ActivityProposalSent       ActivityType = "proposal_sent"
	ActivityProposalSigned     ActivityType = "proposal_signed"
	ActivityOpportunityCreated ActivityType = "opportunity_created"
	ActivityTaskCompleted      ActivityType = "task_completed"
	ActivityDealClosed         ActivityType = "deal_closed"
	ActivityAIUsage            ActivityType = "ai_usage"
)

// ActivityEvent is the input contract from the CRM action handlers.
// Events are produced externally and are immutable; the engine only consumes them.
// Callers are responsible for de-duplicating events by their own event id before
// handing them to the scoring engine.
type ActivityEvent struct {
	UserID       string         `json:"user_id"`
	TenantID     string         `json:"tenant_id"`
	ActivityType ActivityType   `json:"activity_type"`
	Value        int64          `json:"value"` // defaults to 1 when <= 0
	OccurredAt   time.Time      `json:"occurred_at"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// activityScoreTypes maps each activity type to its direct leaderboard category.
// ai_usage has no direct category — it contributes to activity_score only.
var activityScoreTypes = map[ActivityType]ScoreType{
	ActivitySpinCompletion:     ScoreTypeSpinCompletions,
	ActivityProposalSent:       ScoreTypeProposalsSent,
	ActivityProposalSigned:     ScoreTypeProposalsSigned,
	ActivityOpportunityCreated: ScoreTypeOpportunitiesCreated,
	ActivityTaskCompleted:      ScoreTypeTasksCompleted,
	ActivityDealClosed:         ScoreTypePipelineValue,
	ActivityAIUsage:            "",
}

// IsValidActivityType reports whether t belongs to the closed enumeration.
func IsValidActivityType(t ActivityType) bool {
	_, ok := activityScoreTypes[t]
	return ok
}

// DirectScoreType returns the direct category for an activity type, or
// ok=false when the type only feeds the synthetic activity_score.
func DirectScoreType(t ActivityType) (ScoreType, bool) {
	st, known := activityScoreTypes[t]
	if !known || st == "" {
		return "", false
	}
	return st, true
}

// ActivityLog is the engine's own journal of accepted contributions, one row per
// scored event. Count-based achievement criteria read it, and it backs full
// re-evaluation (backfill) without the triggering event.
type ActivityLog struct {
	ID           string       `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string       `gorm:"index:idx_activity_user_type,priority:1;not null" json:"user_id"`
	TenantID     string       `gorm:"index;not null" json:"tenant_id"`
	ActivityType ActivityType `gorm:"index:idx_activity_user_type,priority:2;size:50;not null" json:"activity_type"`
	Value        int64        `gorm:"not null" json:"value"`
	Points       int64        `gorm:"not null" json:"points"`
	OccurredAt   time.Time    `gorm:"index:idx_activity_user_type,priority:3;not null" json:"occurred_at"`
	Metadata     string       `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
}
