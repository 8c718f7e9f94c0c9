package models

import (
	"time"
)

// Medal labels for season ranks 1–3.
type Medal string

const (
	MedalGold   Medal = "gold"
	MedalSilver Medal = "silver"
	MedalBronze Medal = "bronze"
)

// MedalForRank maps a final rank to its medal; ranks beyond 3 get none.
func MedalForRank(rank int) Medal {
	switch rank {
	case 1:
		return MedalGold
	case 2:
		return MedalSilver
	case 3:
		return MedalBronze
	default:
		return ""
	}
}

// SeasonWinner is an append-only archive row, written once per
// (tenant, season, category, rank) at rollover and never mutated.
type SeasonWinner struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	TenantID     string    `gorm:"uniqueIndex:idx_season_winner,priority:1;not null" json:"tenant_id"`
	SeasonPeriod string    `gorm:"uniqueIndex:idx_season_winner,priority:2;size:50;not null" json:"season_period"` // e.g. "March 2025"
	Category     ScoreType `gorm:"uniqueIndex:idx_season_winner,priority:3;size:50;not null" json:"category"`
	Rank         int       `gorm:"uniqueIndex:idx_season_winner,priority:4;not null" json:"rank"`
	UserID       string    `gorm:"index;not null" json:"user_id"`
	ScoreValue   int64     `gorm:"not null" json:"score_value"`
	Medal        Medal     `gorm:"size:10" json:"medal"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Rollover marker states.
const (
	RolloverStatusRollingOver = "rolling_over"
	RolloverStatusArchived    = "archived"
)

// SeasonRollover is the persisted per-(tenant, season) rollover marker. The
// unique index makes the marker insert the race-tolerant once-per-boundary
// guard: a duplicate trigger loses the insert and aborts. A marker stuck in
// rolling_over means a previous run died mid-archive and may be resumed —
// winner inserts and the ledger reset are themselves idempotent.
type SeasonRollover struct {
	ID           string     `gorm:"primaryKey;type:uuid" json:"id"`
	TenantID     string     `gorm:"uniqueIndex:idx_season_rollover,priority:1;not null" json:"tenant_id"`
	SeasonPeriod string     `gorm:"uniqueIndex:idx_season_rollover,priority:2;size:50;not null" json:"season_period"`
	Status       string     `gorm:"size:20;not null" json:"status"`
	StartedAt    time.Time  `gorm:"autoCreateTime" json:"started_at"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty"`
}

// SeasonLabel formats the season period label for the month containing at.
func SeasonLabel(at time.Time) string {
	return at.UTC().Format("January 2006")
}
