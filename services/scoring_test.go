package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crm-gamification-engine/models"
)

func spinEvent(userID, tenantID string, at time.Time) models.ActivityEvent {
	return models.ActivityEvent{
		UserID:       userID,
		TenantID:     tenantID,
		ActivityType: models.ActivitySpinCompletion,
		Value:        1,
		OccurredAt:   at,
	}
}

func ledgerValue(t *testing.T, svc *ScoringService, userID, tenantID string, scoreType models.ScoreType, period models.TimePeriod, at time.Time) int64 {
	t.Helper()
	start, _ := models.PeriodBounds(period, at)
	var rec models.ScoreRecord
	err := svc.DB.
		Where("user_id = ? AND tenant_id = ? AND score_type = ? AND time_period = ? AND period_start = ?",
			userID, tenantID, scoreType, period, start).
		First(&rec).Error
	if err != nil {
		t.Fatalf("load %s/%s record: %v", scoreType, period, err)
	}
	return rec.ScoreValue
}

func TestProcessEventRejectsUnknownType(t *testing.T) {
	svc := NewScoringService(openTestDB(t))

	err := svc.ProcessEvent(context.Background(), models.ActivityEvent{
		UserID:       "u1",
		TenantID:     "t1",
		ActivityType: "mystery_action",
	})
	if !errors.Is(err, ErrUnknownActivityType) {
		t.Fatalf("expected ErrUnknownActivityType, got %v", err)
	}

	// Rejected before any write: no journal entry, no ledger records.
	if n := countRows(t, svc.DB, &models.ActivityLog{}, ""); n != 0 {
		t.Fatalf("journal rows = %d, want 0", n)
	}
	if n := countRows(t, svc.DB, &models.ScoreRecord{}, ""); n != 0 {
		t.Fatalf("ledger rows = %d, want 0", n)
	}
}

func TestProcessEventAccumulatesAcrossAllPeriods(t *testing.T) {
	svc := NewScoringService(openTestDB(t))
	now := time.Now().UTC()

	if err := svc.ProcessEvent(context.Background(), spinEvent("u1", "t1", now)); err != nil {
		t.Fatalf("process event: %v", err)
	}

	weight := models.DefaultWeights[models.ActivitySpinCompletion]
	for _, period := range models.OpenPeriods {
		if got := ledgerValue(t, svc, "u1", "t1", models.ScoreTypeSpinCompletions, period, now); got != weight {
			t.Fatalf("%s spin_completions = %d, want %d", period, got, weight)
		}
		if got := ledgerValue(t, svc, "u1", "t1", models.ScoreTypeActivityScore, period, now); got != weight {
			t.Fatalf("%s activity_score = %d, want %d", period, got, weight)
		}
	}

	// all_time records have no period end.
	start, _ := models.PeriodBounds(models.PeriodAllTime, now)
	var rec models.ScoreRecord
	if err := svc.DB.
		Where("user_id = ? AND time_period = ? AND period_start = ? AND score_type = ?",
			"u1", models.PeriodAllTime, start, models.ScoreTypeSpinCompletions).
		First(&rec).Error; err != nil {
		t.Fatalf("load all_time record: %v", err)
	}
	if rec.PeriodEnd != nil {
		t.Fatalf("all_time period_end = %v, want nil", rec.PeriodEnd)
	}
}

func TestConcurrentEventsAreAdditive(t *testing.T) {
	svc := NewScoringService(openTestDB(t))
	now := time.Now().UTC()

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.ProcessEvent(context.Background(), spinEvent("u1", "t1", now))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent process event: %v", err)
		}
	}

	weight := models.DefaultWeights[models.ActivitySpinCompletion]
	want := int64(n) * weight
	if got := ledgerValue(t, svc, "u1", "t1", models.ScoreTypeSpinCompletions, models.PeriodAllTime, now); got != want {
		t.Fatalf("all_time spin_completions after %d concurrent events = %d, want %d", n, got, want)
	}
	if got := ledgerValue(t, svc, "u1", "t1", models.ScoreTypeActivityScore, models.PeriodAllTime, now); got != want {
		t.Fatalf("all_time activity_score after %d concurrent events = %d, want %d", n, got, want)
	}
}

func TestTenantWeightOverride(t *testing.T) {
	svc := NewScoringService(openTestDB(t))
	now := time.Now().UTC()

	override := models.ScoringWeight{
		ID:           "w1",
		TenantID:     "t1",
		ActivityType: models.ActivitySpinCompletion,
		Points:       7,
		Enabled:      true,
	}
	if err := svc.DB.Create(&override).Error; err != nil {
		t.Fatalf("seed weight: %v", err)
	}

	if err := svc.ProcessEvent(context.Background(), spinEvent("u1", "t1", now)); err != nil {
		t.Fatalf("process event: %v", err)
	}
	if got := ledgerValue(t, svc, "u1", "t1", models.ScoreTypeSpinCompletions, models.PeriodWeek, now); got != 7 {
		t.Fatalf("weekly spin_completions with override = %d, want 7", got)
	}

	// Another tenant still gets the default.
	if err := svc.ProcessEvent(context.Background(), spinEvent("u1", "t2", now)); err != nil {
		t.Fatalf("process event for t2: %v", err)
	}
	weight := models.DefaultWeights[models.ActivitySpinCompletion]
	if got := ledgerValue(t, svc, "u1", "t2", models.ScoreTypeSpinCompletions, models.PeriodWeek, now); got != weight {
		t.Fatalf("weekly spin_completions without override = %d, want %d", got, weight)
	}
}

func TestDisabledActivityTypeProducesNoScore(t *testing.T) {
	svc := NewScoringService(openTestDB(t))

	disabled := models.ScoringWeight{
		ID:           "w1",
		TenantID:     "t1",
		ActivityType: models.ActivitySpinCompletion,
		Points:       100,
		Enabled:      false,
	}
	if err := svc.DB.Create(&disabled).Error; err != nil {
		t.Fatalf("seed weight: %v", err)
	}

	if err := svc.ProcessEvent(context.Background(), spinEvent("u1", "t1", time.Now().UTC())); err != nil {
		t.Fatalf("process event: %v", err)
	}
	if n := countRows(t, svc.DB, &models.ScoreRecord{}, ""); n != 0 {
		t.Fatalf("ledger rows for disabled type = %d, want 0", n)
	}
}

func TestDisabledWeightSurvivesCreate(t *testing.T) {
	db := openTestDB(t)

	// Enabled is the zero value here; it must reach the database as false,
	// not be swallowed by a column default.
	disabled := models.ScoringWeight{
		ID:           "w1",
		TenantID:     "t1",
		ActivityType: models.ActivitySpinCompletion,
		Points:       100,
	}
	if err := db.Create(&disabled).Error; err != nil {
		t.Fatalf("create weight: %v", err)
	}

	var got models.ScoringWeight
	if err := db.First(&got, "id = ?", "w1").Error; err != nil {
		t.Fatalf("reload weight: %v", err)
	}
	if got.Enabled {
		t.Fatal("Enabled=false was persisted as true")
	}
}

func TestAIUsageFeedsActivityScoreOnly(t *testing.T) {
	svc := NewScoringService(openTestDB(t))
	now := time.Now().UTC()

	err := svc.ProcessEvent(context.Background(), models.ActivityEvent{
		UserID:       "u1",
		TenantID:     "t1",
		ActivityType: models.ActivityAIUsage,
		Value:        1,
		OccurredAt:   now,
	})
	if err != nil {
		t.Fatalf("process event: %v", err)
	}

	weight := models.DefaultWeights[models.ActivityAIUsage]
	if got := ledgerValue(t, svc, "u1", "t1", models.ScoreTypeActivityScore, models.PeriodAllTime, now); got != weight {
		t.Fatalf("all_time activity_score = %d, want %d", got, weight)
	}
	// No direct category records, only the three activity_score periods.
	if n := countRows(t, svc.DB, &models.ScoreRecord{}, "score_type <> ?", models.ScoreTypeActivityScore); n != 0 {
		t.Fatalf("direct category rows for ai_usage = %d, want 0", n)
	}
}

func TestZeroValueDefaultsToOne(t *testing.T) {
	svc := NewScoringService(openTestDB(t))
	now := time.Now().UTC()

	err := svc.ProcessEvent(context.Background(), models.ActivityEvent{
		UserID:       "u1",
		TenantID:     "t1",
		ActivityType: models.ActivityDealClosed,
		OccurredAt:   now,
	})
	if err != nil {
		t.Fatalf("process event: %v", err)
	}
	weight := models.DefaultWeights[models.ActivityDealClosed]
	if got := ledgerValue(t, svc, "u1", "t1", models.ScoreTypePipelineValue, models.PeriodMonth, now); got != weight {
		t.Fatalf("monthly pipeline_value = %d, want %d", got, weight)
	}
}

func TestEventValueScalesPoints(t *testing.T) {
	svc := NewScoringService(openTestDB(t))
	now := time.Now().UTC()

	err := svc.ProcessEvent(context.Background(), models.ActivityEvent{
		UserID:       "u1",
		TenantID:     "t1",
		ActivityType: models.ActivityDealClosed,
		Value:        4,
		OccurredAt:   now,
	})
	if err != nil {
		t.Fatalf("process event: %v", err)
	}
	want := 4 * models.DefaultWeights[models.ActivityDealClosed]
	if got := ledgerValue(t, svc, "u1", "t1", models.ScoreTypePipelineValue, models.PeriodAllTime, now); got != want {
		t.Fatalf("all_time pipeline_value = %d, want %d", got, want)
	}
}
