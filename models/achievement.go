package models

import (
	"time"
)

// CriteriaType selects an evaluator from the criteria registry.
type CriteriaType string

const (
	CriteriaSpinCompletions    CriteriaType = "spin_completions"
	CriteriaWeeklyTasks        CriteriaType = "weekly_tasks"
	CriteriaDailyOpportunities CriteriaType = "daily_opportunities"
	CriteriaWeeklyProposals    CriteriaType = "weekly_proposals"
	CriteriaPipelineValue      CriteriaType = "pipeline_value"
)

// AchievementDefinition: static config, read-only to the engine.
type AchievementDefinition struct {
	ID             string       `gorm:"primaryKey;type:uuid" json:"id"`
	Code           string       `gorm:"uniqueIndex;not null" json:"code"` // e.g., "SPIN_MASTER"
	Name           string       `gorm:"not null" json:"name"`
	Description    string       `json:"description"`
	Icon           string       `gorm:"size:50" json:"icon"`
	BadgeColor     string       `gorm:"size:20" json:"badge_color"`
	Points         int64        `gorm:"not null;default:0" json:"points"`
	CriteriaType   CriteriaType `gorm:"size:50;not null" json:"criteria_type"`
	CriteriaTarget int64        `gorm:"not null" json:"criteria_target"`
	IsActive       bool         `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

// UserAchievement: awarded instance. The unique index on
// (user_id, achievement_id) is the idempotency guarantee — a concurrent
// evaluation that loses the insert race gets a no-op, not a second row.
type UserAchievement struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string    `gorm:"uniqueIndex:idx_user_achievement,priority:1;not null" json:"user_id"`
	TenantID      string    `gorm:"index;not null" json:"tenant_id"`
	AchievementID string    `gorm:"uniqueIndex:idx_user_achievement,priority:2;not null" json:"achievement_id"`
	EarnedAt      time.Time `gorm:"autoCreateTime" json:"earned_at"`
	Progress      int64     `json:"progress"`
}

// DefaultAchievements seeds the definitions table on first boot.
var DefaultAchievements = []AchievementDefinition{
	{
		Code:           "SPIN_STARTER",
		Name:           "Spin Starter",
		Description:    "Completed your first assessment spin",
		Icon:           "compass",
		BadgeColor:     "green",
		Points:         50,
		CriteriaType:   CriteriaSpinCompletions,
		CriteriaTarget: 1,
	},
	{
		Code:           "SPIN_MASTER",
		Name:           "Spin Master",
		Description:    "Completed 3 assessment spins",
		Icon:           "trophy",
		BadgeColor:     "gold",
		Points:         150,
		CriteriaType:   CriteriaSpinCompletions,
		CriteriaTarget: 3,
	},
	{
		Code:           "TASK_MACHINE",
		Name:           "Task Machine",
		Description:    "Finished 10 tasks in a single week",
		Icon:           "check-circle",
		BadgeColor:     "blue",
		Points:         100,
		CriteriaType:   CriteriaWeeklyTasks,
		CriteriaTarget: 10,
	},
	{
		Code:           "OPPORTUNITY_HUNTER",
		Name:           "Opportunity Hunter",
		Description:    "Created 5 opportunities in one day",
		Icon:           "target",
		BadgeColor:     "purple",
		Points:         200,
		CriteriaType:   CriteriaDailyOpportunities,
		CriteriaTarget: 5,
	},
	{
		Code:           "CLOSER",
		Name:           "Closer",
		Description:    "Got 3 proposals signed within a week",
		Icon:           "pen-tool",
		BadgeColor:     "gold",
		Points:         300,
		CriteriaType:   CriteriaWeeklyProposals,
		CriteriaTarget: 3,
	},
	{
		Code:           "PIPELINE_BUILDER",
		Name:           "Pipeline Builder",
		Description:    "Built an all-time pipeline worth 10,000 points",
		Icon:           "trending-up",
		BadgeColor:     "platinum",
		Points:         500,
		CriteriaType:   CriteriaPipelineValue,
		CriteriaTarget: 10000,
	},
}
