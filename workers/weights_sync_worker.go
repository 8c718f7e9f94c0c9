// workers/weights_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"crm-gamification-engine/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RemoteScoringWeight matches the JSON from the admin settings service.
type RemoteScoringWeight struct {
	TenantID     string    `json:"tenant_id"`
	ActivityType string    `json:"activity_type"`
	Points       int64     `json:"points"`
	Enabled      bool      `json:"enabled"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// GetWeightChangesResponse is the top-level structure of the settings service response.
type GetWeightChangesResponse struct {
	Weights []RemoteScoringWeight `json:"weights"`
}

// WeightsSyncWorker mirrors per-tenant scoring weights from the admin settings
// store into the local scoring_weights table. The scoring engine only ever
// reads the mirror; the settings UI stays the single writer upstream.
type WeightsSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8600"
	endpointPath string // e.g., "/api/v1/internal/scoring-weights"
	serviceToken string
	httpClient   *http.Client
}

func NewWeightsSyncWorker(db *gorm.DB, settingsServiceBaseURL, endpointPath, serviceToken string) *WeightsSyncWorker {
	return &WeightsSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      settingsServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *WeightsSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Weights Sync Worker (settings-service → scoring_weights)…")
	go w.run(ctx)
}

func (w *WeightsSyncWorker) run(ctx context.Context) {
	// Initial sync (backfill if needed) - sync from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial weights sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lastSyncTime := w.getLastSyncTime()
			if err := w.syncBatch(ctx, lastSyncTime); err != nil {
				log.Printf("❌ Weights sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Weights Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt from the local mirror.
func (w *WeightsSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM scoring_weights").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0) // Fallback to epoch if no records or error
	}
	return lastTime
}

// syncBatch fetches weight changes from the settings service and upserts them
// into the local mirror.
func (w *WeightsSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid settings service URL '%s': %w", w.baseURL, err)
	}

	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to settings service failed: %w", err)
	}
	defer func() {
		// Always drain & close to prevent connection leaks
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("[SYNC] ❌ Settings service returned %d for %s: %s", resp.StatusCode, finalURL, string(body))
		return fmt.Errorf("settings service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response GetWeightChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode settings service response: %w", err)
	}

	if len(response.Weights) == 0 {
		return nil
	}

	log.Printf("[SYNC] 📥 Processing %d weight change(s) from settings service…", len(response.Weights))

	var upsertCount, errorCount int
	for _, remote := range response.Weights {
		if !models.IsValidActivityType(models.ActivityType(remote.ActivityType)) {
			log.Printf("[SYNC] ⚠️ Skipping weight for unknown activity type %q (tenant=%s)", remote.ActivityType, remote.TenantID)
			continue
		}
		local := models.ScoringWeight{
			ID:           uuid.NewString(),
			TenantID:     remote.TenantID,
			ActivityType: models.ActivityType(remote.ActivityType),
			Points:       remote.Points,
			Enabled:      remote.Enabled,
			UpdatedAt:    remote.UpdatedAt,
		}
		if err := w.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "activity_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"points", "enabled", "updated_at"}),
		}).Create(&local).Error; err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Failed to upsert scoring weight (tenant=%q, type=%q): %v",
				remote.TenantID, remote.ActivityType, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[SYNC] ✅ Synced %d weight(s) (%d upserted, %d errors)", len(response.Weights), upsertCount, errorCount)
	return nil
}
