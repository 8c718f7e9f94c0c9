package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"crm-gamification-engine/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	DefaultLeaderboardLimit = 10
	leaderboardCacheTTL     = 15 * time.Second
)

// LeaderboardEntry is one ranked row in a category.
type LeaderboardEntry struct {
	UserID     string `json:"user_id"`
	ScoreValue int64  `json:"score_value"`
	Rank       int    `json:"rank"`
}

// Leaderboard holds the ranked entries for every category of one period.
type Leaderboard struct {
	TimePeriod  models.TimePeriod                       `json:"time_period"`
	PeriodStart time.Time                               `json:"period_start"`
	Categories  map[models.ScoreType][]LeaderboardEntry `json:"categories"`
}

// LeaderboardService is a pure reader over the score ledger. Cache is
// optional: with a nil client every read goes to the database.
type LeaderboardService struct {
	DB    *gorm.DB
	Cache *redis.Client
}

func NewLeaderboardService(db *gorm.DB, cache *redis.Client) *LeaderboardService {
	return &LeaderboardService{DB: db, Cache: cache}
}

// GetLeaderboard ranks the current period's records per category, top `limit`
// each. Ordering is deterministic: score descending, then user id ascending on
// ties, with dense ranks 1..K. Reads may observe a snapshot mid-update; a few
// seconds of staleness is acceptable here, which is also why the short-TTL
// cache is safe.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, tenantID string, period models.TimePeriod, limit int) (*Leaderboard, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	start, _ := models.PeriodBounds(period, time.Now())

	cacheKey := fmt.Sprintf("leaderboard:%s:%s:%d", tenantID, period, limit)
	if s.Cache != nil {
		if raw, err := s.Cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached Leaderboard
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	query := s.DB.WithContext(ctx).
		Where("time_period = ? AND period_start = ? AND score_value > 0", period, start)
	if tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}

	var records []models.ScoreRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}

	board := &Leaderboard{
		TimePeriod:  period,
		PeriodStart: start,
		Categories:  make(map[models.ScoreType][]LeaderboardEntry),
	}
	grouped := make(map[models.ScoreType][]models.ScoreRecord)
	for _, rec := range records {
		grouped[rec.ScoreType] = append(grouped[rec.ScoreType], rec)
	}
	for scoreType, group := range grouped {
		board.Categories[scoreType] = RankRecords(group, limit)
	}

	if s.Cache != nil {
		if raw, err := json.Marshal(board); err == nil {
			if err := s.Cache.Set(ctx, cacheKey, raw, leaderboardCacheTTL).Err(); err != nil {
				log.Printf("[LEADERBOARD] Cache write failed for %s: %v", cacheKey, err)
			}
		}
	}
	return board, nil
}

// RankRecords sorts one category's records into ranked entries. Shared with
// the rollover manager so season medals follow the exact leaderboard order.
func RankRecords(records []models.ScoreRecord, limit int) []LeaderboardEntry {
	sort.Slice(records, func(i, j int) bool {
		if records[i].ScoreValue != records[j].ScoreValue {
			return records[i].ScoreValue > records[j].ScoreValue
		}
		return records[i].UserID < records[j].UserID
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	entries := make([]LeaderboardEntry, 0, len(records))
	for i, rec := range records {
		entries = append(entries, LeaderboardEntry{
			UserID:     rec.UserID,
			ScoreValue: rec.ScoreValue,
			Rank:       i + 1,
		})
	}
	return entries
}
