package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"crm-gamification-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScoringService turns activity events into ledger increments. Safe for
// concurrent calls, including for the same user: every ledger update is a
// single atomic SQL add, never read-then-write.
type ScoringService struct {
	DB *gorm.DB
}

func NewScoringService(db *gorm.DB) *ScoringService {
	return &ScoringService{DB: db}
}

// ProcessEvent scores one activity event: resolves the tenant's weight fresh,
// journals the contribution, then adds the points to the direct category (if
// the activity type has one) and to activity_score, for every open period at
// the event's occurred_at.
//
// A failed increment for one (type, period) cell does not roll back the
// others; all failures come back joined so the caller can retry those cells
// after re-submitting the (caller-deduplicated) event.
func (s *ScoringService) ProcessEvent(ctx context.Context, event models.ActivityEvent) error {
	if !models.IsValidActivityType(event.ActivityType) {
		return fmt.Errorf("%w: %q", ErrUnknownActivityType, event.ActivityType)
	}

	weight, enabled, err := s.resolveWeight(ctx, event.TenantID, event.ActivityType)
	if err != nil {
		return fmt.Errorf("resolve weight: %w", err)
	}
	if !enabled {
		log.Printf("[SCORING] Skipping disabled activity type %s for tenant %s", event.ActivityType, event.TenantID)
		return nil
	}

	value := event.Value
	if value <= 0 {
		value = 1
	}
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	points := value * weight

	if err := s.journalEvent(ctx, event, value, points, occurredAt); err != nil {
		return fmt.Errorf("journal event: %w", err)
	}

	var errs []error
	for _, period := range models.OpenPeriods {
		if direct, ok := models.DirectScoreType(event.ActivityType); ok {
			if err := s.addScore(ctx, event.UserID, event.TenantID, direct, period, occurredAt, points); err != nil {
				errs = append(errs, &LedgerWriteError{
					UserID: event.UserID, TenantID: event.TenantID,
					ScoreType: direct, Period: period, Err: err,
				})
			}
		}
		if err := s.addScore(ctx, event.UserID, event.TenantID, models.ScoreTypeActivityScore, period, occurredAt, points); err != nil {
			errs = append(errs, &LedgerWriteError{
				UserID: event.UserID, TenantID: event.TenantID,
				ScoreType: models.ScoreTypeActivityScore, Period: period, Err: err,
			})
		}
	}
	return errors.Join(errs...)
}

// addScore applies one atomic increment to the ledger cell for the period
// containing occurredAt, creating the record on first contribution.
func (s *ScoringService) addScore(ctx context.Context, userID, tenantID string, scoreType models.ScoreType, period models.TimePeriod, occurredAt time.Time, points int64) error {
	start, end := models.PeriodBounds(period, occurredAt)

	rec := models.ScoreRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		TenantID:    tenantID,
		ScoreType:   scoreType,
		TimePeriod:  period,
		PeriodStart: start,
		PeriodEnd:   end,
		ScoreValue:  points,
	}

	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "tenant_id"}, {Name: "score_type"},
			{Name: "time_period"}, {Name: "period_start"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"score_value": gorm.Expr("score_records.score_value + excluded.score_value"),
			"updated_at":  time.Now().UTC(),
		}),
	}).Create(&rec).Error
}

// journalEvent records the accepted contribution in the activity log, which
// the achievement criteria engine counts against.
func (s *ScoringService) journalEvent(ctx context.Context, event models.ActivityEvent, value, points int64, occurredAt time.Time) error {
	var metadata string
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = string(raw)
	}

	entry := models.ActivityLog{
		ID:           uuid.NewString(),
		UserID:       event.UserID,
		TenantID:     event.TenantID,
		ActivityType: event.ActivityType,
		Value:        value,
		Points:       points,
		OccurredAt:   occurredAt,
		Metadata:     metadata,
	}
	return s.DB.WithContext(ctx).Create(&entry).Error
}

// resolveWeight reads the tenant's weight row fresh on every call; defaults
// apply when the mirror has no row for the tenant.
func (s *ScoringService) resolveWeight(ctx context.Context, tenantID string, activityType models.ActivityType) (int64, bool, error) {
	var w models.ScoringWeight
	err := s.DB.WithContext(ctx).
		Where("tenant_id = ? AND activity_type = ?", tenantID, activityType).
		First(&w).Error
	if err == nil {
		return w.Points, w.Enabled, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultWeights[activityType], true, nil
	}
	return 0, false, err
}
