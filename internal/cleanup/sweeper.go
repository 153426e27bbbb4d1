package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/hugh/go-warden/internal/database/models"
	"gorm.io/gorm"
)

// Sweeper removes the debris the account lifecycle leaves behind: abandoned
// registrations and expired single-use tokens still sitting on live rows.
type Sweeper struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewSweeper(db *gorm.DB, logger *slog.Logger) *Sweeper {
	return &Sweeper{db: db, logger: logger}
}

// SweepReport summarizes what a deep sweep touched.
type SweepReport struct {
	Abandoned            int64 `json:"abandoned"`
	ExpiredVerifications int64 `json:"expired_verifications"`
	ExpiredResets        int64 `json:"expired_resets"`
}

// SweepAbandoned hard-deletes accounts that never completed registration and
// whose registration token has expired. Accounts with a live token or a
// completed registration are never touched.
func (s *Sweeper) SweepAbandoned(ctx context.Context) (int64, error) {
	now := time.Now().Unix()
	res := s.db.WithContext(ctx).Unscoped().
		Where("registered_at IS NULL AND google_id IS NULL AND registration_expires > 0 AND registration_expires < ?", now).
		Delete(&models.Account{})
	if res.Error != nil {
		return 0, res.Error
	}

	if res.RowsAffected > 0 {
		s.logger.Info("deleted abandoned registrations", "count", res.RowsAffected)
	}

	return res.RowsAffected, nil
}

// DeepSweep runs the abandoned sweep and additionally clears expired
// verification and reset token pairs from accounts that stay.
func (s *Sweeper) DeepSweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	abandoned, err := s.SweepAbandoned(ctx)
	if err != nil {
		return report, err
	}
	report.Abandoned = abandoned

	now := time.Now().Unix()

	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("verify_expires > 0 AND verify_expires < ?", now).
		Updates(map[string]interface{}{"verify_token": "", "verify_expires": 0})
	if res.Error != nil {
		return report, res.Error
	}
	report.ExpiredVerifications = res.RowsAffected

	res = s.db.WithContext(ctx).Model(&models.Account{}).
		Where("reset_expires > 0 AND reset_expires < ?", now).
		Updates(map[string]interface{}{"reset_token": "", "reset_expires": 0})
	if res.Error != nil {
		return report, res.Error
	}
	report.ExpiredResets = res.RowsAffected

	return report, nil
}
