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
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const seasonTopN = 3

// RolloverService freezes a season's standings into the append-only
// SeasonWinner archive and resets the period-scoped ledger for the next
// season. Exporter optionally mirrors the final standings JSON to object
// storage; nil disables the export.
type RolloverService struct {
	DB       *gorm.DB
	Exporter func(key string, payload []byte) error
}

func NewRolloverService(db *gorm.DB) *RolloverService {
	return &RolloverService{DB: db}
}

// RunSeasonRollover archives the season (calendar month) containing seasonTime
// for one tenant and zeroes its week/month ledger records. Running it twice
// for the same (tenant, season) is a no-op: the rollover marker's unique index
// is the race-tolerant guard, so a duplicate trigger loses the insert and
// aborts. A marker left in rolling_over by a crashed run is resumed — winner
// inserts and the reset are idempotent on their own.
func (s *RolloverService) RunSeasonRollover(ctx context.Context, tenantID string, seasonTime time.Time) error {
	monthStart, monthEnd := models.PeriodBounds(models.PeriodMonth, seasonTime)
	label := models.SeasonLabel(monthStart)

	resumed, err := s.claimSeason(ctx, tenantID, label)
	if err != nil {
		return fmt.Errorf("claim season %s: %w", label, err)
	}
	if !resumed {
		log.Printf("[ROLLOVER] Season %q already archived for tenant %s — skipping", label, tenantID)
		return nil
	}

	// Archive each category independently so one failure does not block the
	// others; the reset below only runs once every category made it.
	var archiveErrs []error
	for _, category := range models.AllScoreTypes {
		if err := s.archiveCategory(ctx, tenantID, label, category, monthStart); err != nil {
			archiveErrs = append(archiveErrs, fmt.Errorf("archive %s: %w", category, err))
		}
	}
	if len(archiveErrs) > 0 {
		// Marker stays in rolling_over; the next trigger resumes archival.
		return fmt.Errorf("season %q partially archived: %w", label, errors.Join(archiveErrs...))
	}

	if err := s.resetPeriodScores(ctx, tenantID, *monthEnd); err != nil {
		return fmt.Errorf("reset period scores for %q: %w", label, err)
	}

	now := time.Now().UTC()
	if err := s.DB.WithContext(ctx).Model(&models.SeasonRollover{}).
		Where("tenant_id = ? AND season_period = ?", tenantID, label).
		Updates(map[string]interface{}{
			"status":      models.RolloverStatusArchived,
			"archived_at": now,
		}).Error; err != nil {
		return fmt.Errorf("finalize rollover marker for %q: %w", label, err)
	}

	s.exportArchive(ctx, tenantID, label)

	log.Printf("✅ Season %q rolled over for tenant %s", label, tenantID)
	return nil
}

// claimSeason inserts the rollover marker. Returns false when the season is
// already archived; true when this run owns (or resumes) the rollover.
func (s *RolloverService) claimSeason(ctx context.Context, tenantID, label string) (bool, error) {
	marker := models.SeasonRollover{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		SeasonPeriod: label,
		Status:       models.RolloverStatusRollingOver,
	}
	result := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "season_period"}},
		DoNothing: true,
	}).Create(&marker)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var existing models.SeasonRollover
	if err := s.DB.WithContext(ctx).
		Where("tenant_id = ? AND season_period = ?", tenantID, label).
		First(&existing).Error; err != nil {
		return false, err
	}
	return existing.Status != models.RolloverStatusArchived, nil
}

// archiveCategory writes the category's top finishers with medals. The winner
// rows share the leaderboard's ordering, and the insert-if-absent keeps
// resumed runs from duplicating ranks archived earlier.
func (s *RolloverService) archiveCategory(ctx context.Context, tenantID, label string, category models.ScoreType, monthStart time.Time) error {
	var records []models.ScoreRecord
	if err := s.DB.WithContext(ctx).
		Where("tenant_id = ? AND score_type = ? AND time_period = ? AND period_start = ? AND score_value > 0",
			tenantID, category, models.PeriodMonth, monthStart).
		Find(&records).Error; err != nil {
		return err
	}

	for _, entry := range RankRecords(records, seasonTopN) {
		winner := models.SeasonWinner{
			ID:           uuid.NewString(),
			TenantID:     tenantID,
			SeasonPeriod: label,
			Category:     category,
			Rank:         entry.Rank,
			UserID:       entry.UserID,
			ScoreValue:   entry.ScoreValue,
			Medal:        models.MedalForRank(entry.Rank),
		}
		if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"}, {Name: "season_period"},
				{Name: "category"}, {Name: "rank"},
			},
			DoNothing: true,
		}).Create(&winner).Error; err != nil {
			return err
		}
	}
	return nil
}

// resetPeriodScores zeroes (not deletes) the week and month records of the
// ended season. all_time records are never touched, and neither is a week
// straddling the boundary: points scored in the new season before the
// rollover fires already live in that record.
func (s *RolloverService) resetPeriodScores(ctx context.Context, tenantID string, seasonEnd time.Time) error {
	return s.DB.WithContext(ctx).Model(&models.ScoreRecord{}).
		Where("tenant_id = ? AND time_period IN ? AND period_start < ? AND period_end <= ?",
			tenantID, []models.TimePeriod{models.PeriodWeek, models.PeriodMonth}, seasonEnd, seasonEnd).
		Update("score_value", 0).Error
}

// exportArchive mirrors the final standings to object storage, best-effort.
func (s *RolloverService) exportArchive(ctx context.Context, tenantID, label string) {
	if s.Exporter == nil {
		return
	}
	winners, err := s.ListSeasonWinners(ctx, tenantID, label)
	if err != nil {
		log.Printf("[ROLLOVER] Export skipped, failed to load winners for %q: %v", label, err)
		return
	}
	payload, err := json.Marshal(winners)
	if err != nil {
		log.Printf("[ROLLOVER] Export skipped, failed to marshal winners for %q: %v", label, err)
		return
	}
	key := fmt.Sprintf("seasons/%s/%s.json", tenantID, slug.Make(label))
	if err := s.Exporter(key, payload); err != nil {
		log.Printf("⚠️ Season archive export failed for %s: %v", key, err)
	}
}

// ListSeasonWinners returns the archived standings for one tenant and season,
// ordered for the season-history display.
func (s *RolloverService) ListSeasonWinners(ctx context.Context, tenantID, label string) ([]models.SeasonWinner, error) {
	var winners []models.SeasonWinner
	err := s.DB.WithContext(ctx).
		Where("tenant_id = ? AND season_period = ?", tenantID, label).
		Order("category ASC, rank ASC").
		Find(&winners).Error
	return winners, err
}

// TenantIDs lists every tenant with ledger activity, for the boundary job.
func (s *RolloverService) TenantIDs(ctx context.Context) ([]string, error) {
	var tenants []string
	err := s.DB.WithContext(ctx).Model(&models.ScoreRecord{}).
		Distinct("tenant_id").
		Pluck("tenant_id", &tenants).Error
	return tenants, err
}
