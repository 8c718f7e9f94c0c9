package models

import (
	"time"
)

// ScoreType is a leaderboard category. Direct categories mirror an activity
// type; activity_score is the synthetic weighted sum across all activity types.
type ScoreType string

const (
	ScoreTypeSpinCompletions      ScoreType = "spin_completions"
	ScoreTypeProposalsSent        ScoreType = "proposals_sent"
	ScoreTypeProposalsSigned      ScoreType = "proposals_signed"
	ScoreTypeOpportunitiesCreated ScoreType = "opportunities_created"
	ScoreTypeTasksCompleted       ScoreType = "tasks_completed"
	ScoreTypePipelineValue        ScoreType = "pipeline_value"
	ScoreTypeActivityScore        ScoreType = "activity_score"
)

// AllScoreTypes lists every category in leaderboard display order.
var AllScoreTypes = []ScoreType{
	ScoreTypeActivityScore,
	ScoreTypeSpinCompletions,
	ScoreTypeProposalsSent,
	ScoreTypeProposalsSigned,
	ScoreTypeOpportunitiesCreated,
	ScoreTypeTasksCompleted,
	ScoreTypePipelineValue,
}

// TimePeriod is an accumulation window.
type TimePeriod string

const (
	PeriodWeek    TimePeriod = "week"
	PeriodMonth   TimePeriod = "month"
	PeriodAllTime TimePeriod = "all_time"
)

// OpenPeriods are the windows every contribution lands in.
var OpenPeriods = []TimePeriod{PeriodWeek, PeriodMonth, PeriodAllTime}

// ScoreRecord is one ledger accumulator, keyed by
// (user, tenant, score_type, time_period, period_start). ScoreValue only ever
// grows within a period via atomic adds; the rollover manager zeroes week/month
// records at a season boundary but never touches all_time.
type ScoreRecord struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string     `gorm:"uniqueIndex:idx_score_key,priority:1;not null" json:"user_id"`
	TenantID    string     `gorm:"uniqueIndex:idx_score_key,priority:2;not null" json:"tenant_id"`
	ScoreType   ScoreType  `gorm:"uniqueIndex:idx_score_key,priority:3;size:50;not null" json:"score_type"`
	TimePeriod  TimePeriod `gorm:"uniqueIndex:idx_score_key,priority:4;size:20;not null" json:"time_period"`
	PeriodStart time.Time  `gorm:"uniqueIndex:idx_score_key,priority:5;not null" json:"period_start"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"` // nil for all_time
	ScoreValue  int64      `gorm:"not null;default:0" json:"score_value"`
	Metadata    string     `gorm:"type:jsonb" json:"metadata,omitempty"`

	Timestamps
}

// PeriodBounds returns the accumulation window containing at, in UTC.
// Weeks are ISO weeks (Monday 00:00), months are calendar months, and all_time
// is the open-ended window anchored at the zero time so the ledger key stays total.
func PeriodBounds(period TimePeriod, at time.Time) (start time.Time, end *time.Time) {
	at = at.UTC()
	switch period {
	case PeriodWeek:
		weekday := int(at.Weekday())
		if weekday == 0 { // Sunday
			weekday = 7
		}
		day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
		start = day.AddDate(0, 0, -(weekday - 1))
		e := start.AddDate(0, 0, 7)
		return start, &e
	case PeriodMonth:
		start = time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
		e := start.AddDate(0, 1, 0)
		return start, &e
	default: // all_time
		return time.Time{}, nil
	}
}
