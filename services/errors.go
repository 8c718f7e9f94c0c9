package services

import (
	"errors"
	"fmt"

	"crm-gamification-engine/models"
)

// ErrUnknownActivityType rejects events outside the closed enumeration before
// any write happens.
var ErrUnknownActivityType = errors.New("unknown activity type")

// LedgerWriteError reports a failed increment for one (score_type, period)
// cell. The other cells of the same event are not rolled back — callers retry
// at this granularity after de-duplicating the event upstream.
type LedgerWriteError struct {
	UserID    string
	TenantID  string
	ScoreType models.ScoreType
	Period    models.TimePeriod
	Err       error
}

func (e *LedgerWriteError) Error() string {
	return fmt.Sprintf("ledger write failed for user=%s type=%s period=%s: %v",
		e.UserID, e.ScoreType, e.Period, e.Err)
}

func (e *LedgerWriteError) Unwrap() error { return e.Err }

// CriterionError isolates one achievement's evaluation failure so the rest of
// the batch keeps going.
type CriterionError struct {
	AchievementID string
	Code          string
	Err           error
}

func (e *CriterionError) Error() string {
	return fmt.Sprintf("criterion evaluation failed for achievement %s (%s): %v",
		e.Code, e.AchievementID, e.Err)
}

func (e *CriterionError) Unwrap() error { return e.Err }
