// Package retention runs the background housekeeping loop: expired mission
// start markers are purged, ended auctions are settled, and old activity
// rows are trimmed in bounded batches.
package retention

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kiemxuonline/kiemxu/internal/market"
	"github.com/kiemxuonline/kiemxu/internal/models"
	"github.com/kiemxuonline/kiemxu/internal/settings"
)

const (
	defaultInterval      = 10 * time.Minute
	defaultBatchSize     = 5000
	maxBatchesPerRun     = 200
	roundRetentionDays   = 90
	checkinRetentionDays = 365
	lockRetentionDays    = 180
	listingRetentionDays = 180
)

// Cleaner periodically settles ended auctions and deletes stale rows.
type Cleaner struct {
	db        *gorm.DB
	market    *market.Service
	interval  time.Duration
	batchSize int
}

// NewCleaner constructs a Cleaner.
func NewCleaner(db *gorm.DB, marketSvc *market.Service) *Cleaner {
	if db == nil {
		return nil
	}
	return &Cleaner{
		db:        db,
		market:    marketSvc,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
	}
}

// Start launches the housekeeping loop in a background goroutine.
func (c *Cleaner) Start(ctx context.Context) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go c.run(ctx)
	log.Infof("retention cleaner started (interval=%s)", c.interval)
}

func (c *Cleaner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.RunOnce(ctx)
		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// RunOnce performs a single housekeeping pass.
func (c *Cleaner) RunOnce(ctx context.Context) {
	if c == nil || c.db == nil {
		return
	}
	c.settleEndedAuctions(ctx)
	c.purgeExpiredStartMarkers(ctx)
	c.purgeStaleListings(ctx)
	c.trimOldRows(ctx, "minigame_rounds", roundRetentionDays)
	c.trimOldRows(ctx, "check_ins", checkinRetentionDays)
	c.trimOldRows(ctx, "mission_locks", lockRetentionDays)
}

// settleEndedAuctions finds auctions past their end time and settles each.
func (c *Cleaner) settleEndedAuctions(ctx context.Context) {
	if c.market == nil {
		return
	}
	var ids []uint64
	if errFind := c.db.WithContext(ctx).Model(&models.Account{}).
		Where("sale_type = ? AND status = ? AND auction_ends_at IS NOT NULL AND auction_ends_at < ?",
			models.SaleTypeAuction, models.AccountAvailable, time.Now()).
		Limit(c.batchSize).
		Pluck("id", &ids).Error; errFind != nil {
		log.WithError(errFind).Warn("retention: list ended auctions failed")
		return
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if errSettle := c.market.SettleAuction(ctx, id); errSettle != nil {
			log.WithError(errSettle).WithField("account_id", id).Warn("retention: settle auction failed")
		}
	}
	if len(ids) > 0 {
		log.Infof("retention: settled %d ended auctions", len(ids))
	}
}

// purgeExpiredStartMarkers deletes mission start markers older than twice
// the verify TTL. Verification already rejects stale markers; this keeps
// the table small.
func (c *Cleaner) purgeExpiredStartMarkers(ctx context.Context) {
	cutoff := time.Now().Add(-2 * settings.MissionStartTTL())
	res := c.db.WithContext(ctx).
		Where("started_at < ?", cutoff).
		Delete(&models.MissionStart{})
	if res.Error != nil {
		log.WithError(res.Error).Warn("retention: purge start markers failed")
		return
	}
	if res.RowsAffected > 0 {
		log.Infof("retention: purged %d expired start markers", res.RowsAffected)
	}
}

// purgeStaleListings deletes sold and removed listings once they are old
// enough that the buyer no longer needs credential access.
func (c *Cleaner) purgeStaleListings(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -listingRetentionDays)
	res := c.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []string{models.AccountSold, models.AccountRemoved}, cutoff).
		Delete(&models.Account{})
	if res.Error != nil {
		log.WithError(res.Error).Warn("retention: purge stale listings failed")
		return
	}
	if res.RowsAffected > 0 {
		log.Infof("retention: purged %d stale listings", res.RowsAffected)
	}
}

// trimOldRows deletes rows older than the retention window in limited
// batches, avoiding long transactions on busy tables.
func (c *Cleaner) trimOldRows(ctx context.Context, table string, retentionDays int) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	deletedTotal := int64(0)
	for i := 0; i < maxBatchesPerRun; i++ {
		if ctx.Err() != nil {
			return
		}
		res := c.db.WithContext(ctx).Exec(`
			DELETE FROM `+table+`
			WHERE id IN (
				SELECT id FROM `+table+`
				WHERE created_at < ?
				ORDER BY created_at ASC
				LIMIT ?
			)
		`, cutoff, c.batchSize)
		if res.Error != nil {
			log.WithError(res.Error).Warnf("retention: trim %s failed", table)
			return
		}
		if res.RowsAffected <= 0 {
			break
		}
		deletedTotal += res.RowsAffected
	}
	if deletedTotal > 0 {
		log.Infof("retention: deleted %d rows from %s (cutoff=%s)", deletedTotal, table, cutoff.Format(time.RFC3339))
	}
}
