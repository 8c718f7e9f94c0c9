package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"crm-gamification-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CriterionEvaluator reports whether one achievement's unlock criterion is met
// for a user, plus the current progress toward the target. Evaluators read the
// activity journal and the ledger only, so full re-evaluation works without a
// triggering event.
type CriterionEvaluator func(ctx context.Context, db *gorm.DB, userID, tenantID string, target int64) (met bool, progress int64, err error)

// criterionRegistry dispatches criteria types to evaluators. New criteria
// register here without touching the award protocol.
var criterionRegistry = map[models.CriteriaType]CriterionEvaluator{}

// RegisterCriterion adds (or replaces) an evaluator for a criteria type.
func RegisterCriterion(criteriaType models.CriteriaType, evaluator CriterionEvaluator) {
	criterionRegistry[criteriaType] = evaluator
}

func init() {
	RegisterCriterion(models.CriteriaSpinCompletions, countingEvaluator(models.ActivitySpinCompletion, nil))
	RegisterCriterion(models.CriteriaWeeklyTasks, countingEvaluator(models.ActivityTaskCompleted, trailingDays(7)))
	RegisterCriterion(models.CriteriaDailyOpportunities, countingEvaluator(models.ActivityOpportunityCreated, currentDay))
	RegisterCriterion(models.CriteriaWeeklyProposals, countingEvaluator(models.ActivityProposalSigned, trailingDays(7)))
	RegisterCriterion(models.CriteriaPipelineValue, evaluatePipelineValue)
}

// countingEvaluator builds an evaluator that counts journal rows of one
// activity type, optionally bounded by a time window.
func countingEvaluator(activityType models.ActivityType, since func(time.Time) time.Time) CriterionEvaluator {
	return func(ctx context.Context, db *gorm.DB, userID, tenantID string, target int64) (bool, int64, error) {
		query := db.WithContext(ctx).Model(&models.ActivityLog{}).
			Where("user_id = ? AND tenant_id = ? AND activity_type = ?", userID, tenantID, activityType)
		if since != nil {
			query = query.Where("occurred_at >= ?", since(time.Now().UTC()))
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return false, 0, err
		}
		return count >= target, count, nil
	}
}

func trailingDays(days int) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		return now.AddDate(0, 0, -days)
	}
}

func currentDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// evaluatePipelineValue checks the all_time pipeline_value ledger cell.
func evaluatePipelineValue(ctx context.Context, db *gorm.DB, userID, tenantID string, target int64) (bool, int64, error) {
	start, _ := models.PeriodBounds(models.PeriodAllTime, time.Now())
	var rec models.ScoreRecord
	err := db.WithContext(ctx).
		Where("user_id = ? AND tenant_id = ? AND score_type = ? AND time_period = ? AND period_start = ?",
			userID, tenantID, models.ScoreTypePipelineValue, models.PeriodAllTime, start).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return rec.ScoreValue >= target, rec.ScoreValue, nil
}

// criteriaByActivity narrows which criteria an incoming event can affect, so
// the hot path skips evaluators whose inputs did not change.
var criteriaByActivity = map[models.ActivityType][]models.CriteriaType{
	models.ActivitySpinCompletion:     {models.CriteriaSpinCompletions},
	models.ActivityTaskCompleted:      {models.CriteriaWeeklyTasks},
	models.ActivityOpportunityCreated: {models.CriteriaDailyOpportunities},
	models.ActivityProposalSigned:     {models.CriteriaWeeklyProposals},
	models.ActivityDealClosed:         {models.CriteriaPipelineValue},
}

// AchievementService evaluates unlock criteria and grants achievements
// idempotently.
type AchievementService struct {
	DB *gorm.DB
}

func NewAchievementService(db *gorm.DB) *AchievementService {
	return &AchievementService{DB: db}
}

// EvaluateOnEvent runs the criteria a just-scored event can have affected.
func (s *AchievementService) EvaluateOnEvent(ctx context.Context, event models.ActivityEvent) error {
	relevant, ok := criteriaByActivity[event.ActivityType]
	if !ok {
		return nil
	}
	return s.evaluate(ctx, event.UserID, event.TenantID, relevant)
}

// EvaluateAll re-runs every active definition from journal and ledger state
// only. Used for backfills.
func (s *AchievementService) EvaluateAll(ctx context.Context, userID, tenantID string) error {
	return s.evaluate(ctx, userID, tenantID, nil)
}

// evaluate walks the eligible definitions and attempts an award for each
// satisfied criterion. One achievement's failure never blocks the rest: errors
// are collected per definition and returned joined.
func (s *AchievementService) evaluate(ctx context.Context, userID, tenantID string, criteriaFilter []models.CriteriaType) error {
	query := s.DB.WithContext(ctx).Where("is_active = ?", true)
	if len(criteriaFilter) > 0 {
		query = query.Where("criteria_type IN ?", criteriaFilter)
	}
	var definitions []models.AchievementDefinition
	if err := query.Find(&definitions).Error; err != nil {
		return fmt.Errorf("load achievement definitions: %w", err)
	}
	if len(definitions) == 0 {
		return nil
	}

	earned, err := s.earnedSet(ctx, userID)
	if err != nil {
		return fmt.Errorf("load earned achievements: %w", err)
	}

	var errs []error
	for _, def := range definitions {
		if earned[def.ID] {
			continue
		}
		evaluator, ok := criterionRegistry[def.CriteriaType]
		if !ok {
			errs = append(errs, &CriterionError{
				AchievementID: def.ID, Code: def.Code,
				Err: fmt.Errorf("no evaluator registered for criteria type %q", def.CriteriaType),
			})
			continue
		}
		met, progress, err := evaluator(ctx, s.DB, userID, tenantID, def.CriteriaTarget)
		if err != nil {
			errs = append(errs, &CriterionError{AchievementID: def.ID, Code: def.Code, Err: err})
			continue
		}
		if !met {
			continue
		}
		if err := s.award(ctx, userID, tenantID, def, progress); err != nil {
			errs = append(errs, &CriterionError{AchievementID: def.ID, Code: def.Code, Err: err})
		}
	}
	return errors.Join(errs...)
}

// award performs the insert-if-absent grant. Losing the insert race to a
// concurrent evaluation is a no-op success: the unique (user, achievement)
// index guarantees exactly one row and exactly one points credit.
func (s *AchievementService) award(ctx context.Context, userID, tenantID string, def models.AchievementDefinition, progress int64) error {
	ua := models.UserAchievement{
		ID:            uuid.NewString(),
		UserID:        userID,
		TenantID:      tenantID,
		AchievementID: def.ID,
		Progress:      progress,
	}
	result := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
		DoNothing: true,
	}).Create(&ua)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Another evaluation got there first.
		return nil
	}

	if err := s.creditPoints(ctx, userID, tenantID, def.Points); err != nil {
		return fmt.Errorf("credit points: %w", err)
	}

	notification := models.Notification{
		ID:       uuid.NewString(),
		UserID:   userID,
		TenantID: tenantID,
		Type:     "achievement_granted",
		Title:    def.Name,
		Message:  def.Description,
		Points:   def.Points,
	}
	if err := s.DB.WithContext(ctx).Create(&notification).Error; err != nil {
		// The grant itself stands; the toast layer just misses this one.
		log.Printf("[ACHIEVEMENTS] Failed to queue notification for %s: %v", def.Code, err)
	}

	log.Printf("🎖️ Achievement granted: %s → %s (+%d points)", def.Code, userID, def.Points)
	return nil
}

// creditPoints atomically adds to the user's total-points counter.
func (s *AchievementService) creditPoints(ctx context.Context, userID, tenantID string, points int64) error {
	if points == 0 {
		return nil
	}
	row := models.UserPoints{
		ID:          uuid.NewString(),
		UserID:      userID,
		TenantID:    tenantID,
		TotalPoints: points,
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "tenant_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_points": gorm.Expr("user_points.total_points + excluded.total_points"),
			"updated_at":   time.Now().UTC(),
		}),
	}).Create(&row).Error
}

// GetUserPoints returns the profile points total (zero when no credits yet).
func (s *AchievementService) GetUserPoints(ctx context.Context, userID, tenantID string) (int64, error) {
	var row models.UserPoints
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.TotalPoints, nil
}

// ListUserAchievements returns the user's earned achievements with their
// definitions, newest first.
func (s *AchievementService) ListUserAchievements(ctx context.Context, userID string) ([]models.UserAchievement, map[string]models.AchievementDefinition, error) {
	var earned []models.UserAchievement
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("earned_at DESC").
		Find(&earned).Error; err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(earned))
	for _, ua := range earned {
		ids = append(ids, ua.AchievementID)
	}
	definitions := make(map[string]models.AchievementDefinition, len(ids))
	if len(ids) > 0 {
		var defs []models.AchievementDefinition
		if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&defs).Error; err != nil {
			return nil, nil, err
		}
		for _, def := range defs {
			definitions[def.ID] = def
		}
	}
	return earned, definitions, nil
}

func (s *AchievementService) earnedSet(ctx context.Context, userID string) (map[string]bool, error) {
	var rows []models.UserAchievement
	if err := s.DB.WithContext(ctx).
		Select("achievement_id").
		Where("user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	earned := make(map[string]bool, len(rows))
	for _, row := range rows {
		earned[row.AchievementID] = true
	}
	return earned, nil
}

// SeedAchievementDefinitions loads the built-in definitions when the table is
// empty, keyed by code so reruns are no-ops.
func SeedAchievementDefinitions(db *gorm.DB) error {
	for _, def := range models.DefaultAchievements {
		def.ID = uuid.NewString()
		def.IsActive = true
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&def).Error; err != nil {
			return fmt.Errorf("seed achievement %s: %w", def.Code, err)
		}
	}
	return nil
}
