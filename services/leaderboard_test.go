package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"crm-gamification-engine/models"
)

func seedWeeklyScore(t *testing.T, scoring *ScoringService, userID string, spins int64) {
	t.Helper()
	err := scoring.ProcessEvent(context.Background(), models.ActivityEvent{
		UserID:       userID,
		TenantID:     "t1",
		ActivityType: models.ActivitySpinCompletion,
		Value:        spins,
		OccurredAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed score for %s: %v", userID, err)
	}
}

func TestLeaderboardOrdersByScoreDescending(t *testing.T) {
	db := openTestDB(t)
	scoring := NewScoringService(db)
	boards := NewLeaderboardService(db, nil)

	seedWeeklyScore(t, scoring, "user-b", 1)
	seedWeeklyScore(t, scoring, "user-a", 3)
	seedWeeklyScore(t, scoring, "user-c", 2)

	board, err := boards.GetLeaderboard(context.Background(), "t1", models.PeriodWeek, 10)
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}

	entries := board.Categories[models.ScoreTypeSpinCompletions]
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	wantOrder := []string{"user-a", "user-c", "user-b"}
	for i, want := range wantOrder {
		if entries[i].UserID != want {
			t.Fatalf("rank %d = %s, want %s", i+1, entries[i].UserID, want)
		}
		if entries[i].Rank != i+1 {
			t.Fatalf("rank field for %s = %d, want %d", want, entries[i].Rank, i+1)
		}
	}
}

func TestLeaderboardTieBreaksByAscendingUserID(t *testing.T) {
	db := openTestDB(t)
	scoring := NewScoringService(db)
	boards := NewLeaderboardService(db, nil)

	// Same score for both users: the lower user id must rank first, and the
	// order must not change across repeated reads.
	seedWeeklyScore(t, scoring, "user-z", 5)
	seedWeeklyScore(t, scoring, "user-a", 5)

	for i := 0; i < 3; i++ {
		board, err := boards.GetLeaderboard(context.Background(), "t1", models.PeriodWeek, 10)
		if err != nil {
			t.Fatalf("get leaderboard (run %d): %v", i, err)
		}
		entries := board.Categories[models.ScoreTypeSpinCompletions]
		if len(entries) != 2 {
			t.Fatalf("entries = %d, want 2", len(entries))
		}
		if entries[0].UserID != "user-a" || entries[1].UserID != "user-z" {
			t.Fatalf("tie order (run %d) = %s, %s — want user-a first", i, entries[0].UserID, entries[1].UserID)
		}
	}
}

func TestLeaderboardLimitsToTopN(t *testing.T) {
	db := openTestDB(t)
	scoring := NewScoringService(db)
	boards := NewLeaderboardService(db, nil)

	for i := 0; i < 12; i++ {
		seedWeeklyScore(t, scoring, fmt.Sprintf("user-%02d", i), int64(i+1))
	}

	board, err := boards.GetLeaderboard(context.Background(), "t1", models.PeriodWeek, 0)
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	entries := board.Categories[models.ScoreTypeSpinCompletions]
	if len(entries) != DefaultLeaderboardLimit {
		t.Fatalf("entries = %d, want default limit %d", len(entries), DefaultLeaderboardLimit)
	}
	if entries[0].UserID != "user-11" {
		t.Fatalf("top entry = %s, want user-11", entries[0].UserID)
	}
}

func TestLeaderboardIgnoresPastPeriods(t *testing.T) {
	db := openTestDB(t)
	scoring := NewScoringService(db)
	boards := NewLeaderboardService(db, nil)

	// Scored three months ago: belongs to an old week, not the current one.
	err := scoring.ProcessEvent(context.Background(), models.ActivityEvent{
		UserID:       "user-old",
		TenantID:     "t1",
		ActivityType: models.ActivitySpinCompletion,
		Value:        10,
		OccurredAt:   time.Now().UTC().AddDate(0, -3, 0),
	})
	if err != nil {
		t.Fatalf("seed old score: %v", err)
	}
	seedWeeklyScore(t, scoring, "user-new", 1)

	board, err := boards.GetLeaderboard(context.Background(), "t1", models.PeriodWeek, 10)
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	entries := board.Categories[models.ScoreTypeSpinCompletions]
	if len(entries) != 1 || entries[0].UserID != "user-new" {
		t.Fatalf("weekly entries = %+v, want only user-new", entries)
	}

	// The old contribution still counts all-time.
	allTime, err := boards.GetLeaderboard(context.Background(), "t1", models.PeriodAllTime, 10)
	if err != nil {
		t.Fatalf("get all_time leaderboard: %v", err)
	}
	if len(allTime.Categories[models.ScoreTypeSpinCompletions]) != 2 {
		t.Fatalf("all_time entries = %d, want 2", len(allTime.Categories[models.ScoreTypeSpinCompletions]))
	}
}

func TestLeaderboardScopedToTenant(t *testing.T) {
	db := openTestDB(t)
	scoring := NewScoringService(db)
	boards := NewLeaderboardService(db, nil)

	seedWeeklyScore(t, scoring, "user-a", 1)
	err := scoring.ProcessEvent(context.Background(), models.ActivityEvent{
		UserID:       "user-other",
		TenantID:     "t2",
		ActivityType: models.ActivitySpinCompletion,
		Value:        9,
		OccurredAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed t2 score: %v", err)
	}

	board, err := boards.GetLeaderboard(context.Background(), "t1", models.PeriodWeek, 10)
	if err != nil {
		t.Fatalf("get leaderboard: %v", err)
	}
	entries := board.Categories[models.ScoreTypeSpinCompletions]
	if len(entries) != 1 || entries[0].UserID != "user-a" {
		t.Fatalf("t1 entries = %+v, want only user-a", entries)
	}
}
