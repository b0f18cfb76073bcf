package scheduler

import (
	"context"
	"time"

	"github.com/sdko-org/sim-fleet/internal/carrier"
	"github.com/sdko-org/sim-fleet/internal/config"
	"github.com/sdko-org/sim-fleet/internal/models"
	"github.com/sdko-org/sim-fleet/internal/service"
	"github.com/sdko-org/sim-fleet/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// lowQuotaPercent is the remaining-quota threshold below which a SIM is
// flagged by the quota check job.
const lowQuotaPercent = 10.0

// Jobs bundles the dependencies of the standing background jobs.
type Jobs struct {
	svc      *service.SIMService
	db       *gorm.DB
	archiver storage.Archiver
	cfg      *config.Config
	log      *logrus.Entry
}

func NewJobs(logger *logrus.Logger, svc *service.SIMService, db *gorm.DB, archiver storage.Archiver, cfg *config.Config) *Jobs {
	return &Jobs{
		svc:      svc,
		db:       db,
		archiver: archiver,
		cfg:      cfg,
		log:      logger.WithField("component", "sync_jobs"),
	}
}

// RegisterAll wires the four standing jobs into the scheduler. Interval
// jobs with a non-positive interval are left unregistered.
func (j *Jobs) RegisterAll(s *Scheduler) error {
	if j.cfg.SyncSIMsInterval > 0 {
		if err := s.Register(Job{
			ID:      "sync_all_sims",
			Name:    "Sync All SIMs from Carrier",
			Trigger: Interval(j.cfg.SyncSIMsInterval),
			Run:     j.SyncAllSIMs,
		}); err != nil {
			return err
		}
	}

	if j.cfg.SyncUsageInterval > 0 {
		if err := s.Register(Job{
			ID:      "sync_usage",
			Name:    "Sync Usage for Active SIMs",
			Trigger: Interval(j.cfg.SyncUsageInterval),
			Run:     j.SyncUsage,
		}); err != nil {
			return err
		}
	}

	if j.cfg.CheckQuotasInterval > 0 {
		if err := s.Register(Job{
			ID:      "check_quotas",
			Name:    "Check SIM Quotas",
			Trigger: Interval(j.cfg.CheckQuotasInterval),
			Run:     j.CheckQuotas,
		}); err != nil {
			return err
		}
	}

	return s.Register(Job{
		ID:      "cleanup_old_data",
		Name:    "Cleanup Old Data",
		Trigger: DailyAt{Hour: j.cfg.CleanupHourUTC},
		Run:     j.CleanupOldData,
	})
}

// SyncAllSIMs reconciles the whole fleet against the carrier listing.
func (j *Jobs) SyncAllSIMs(ctx context.Context) Result {
	res, err := j.svc.SyncAllSIMs(ctx)
	if err != nil {
		return Result{
			Success: false,
			Counts:  map[string]int{"processed": res.Processed, "errors": res.Errors},
			Error:   err.Error(),
		}
	}

	return Result{
		Success: true,
		Counts:  map[string]int{"processed": res.Processed, "errors": res.Errors},
	}
}

// SyncUsage refreshes usage for every active SIM, continuing past per-SIM
// failures and tallying success and error counts.
func (j *Jobs) SyncUsage(ctx context.Context) Result {
	sims, err := j.svc.ActiveSIMs(ctx)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	synced := 0
	errCount := 0
	for _, sim := range sims {
		if _, err := j.svc.SyncUsage(ctx, sim.ICCID); err != nil {
			j.log.WithFields(logrus.Fields{
				"iccid": sim.ICCID,
				"error": err,
			}).Error("Usage sync failed")
			errCount++
			continue
		}
		synced++
	}

	return Result{
		Success: true,
		Counts: map[string]int{
			"total_sims": len(sims),
			"synced":     synced,
			"errors":     errCount,
		},
	}
}

// CheckQuotas refreshes the data quota of every active SIM and flags the
// ones whose remaining volume falls under the threshold. The alert is
// recorded in the result counts only.
func (j *Jobs) CheckQuotas(ctx context.Context) Result {
	sims, err := j.svc.ActiveSIMs(ctx)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	lowQuota := 0
	errCount := 0
	for _, sim := range sims {
		quota, err := j.svc.SyncQuota(ctx, sim.ICCID, carrier.QuotaTypeData)
		if err != nil {
			j.log.WithFields(logrus.Fields{
				"iccid": sim.ICCID,
				"error": err,
			}).Error("Quota check failed")
			errCount++
			continue
		}

		if quota.TotalVolume > 0 {
			percentage := float64(quota.Volume) / float64(quota.TotalVolume) * 100
			if percentage < lowQuotaPercent {
				lowQuota++
				j.log.WithFields(logrus.Fields{
					"iccid":      sim.ICCID,
					"remaining":  quota.Volume,
					"percentage": percentage,
				}).Warn("Low quota detected")
			}
		}
	}

	return Result{
		Success: true,
		Counts: map[string]int{
			"total_sims":      len(sims),
			"low_quota_count": lowQuota,
			"errors":          errCount,
		},
	}
}

// CleanupOldData prunes usage rows past the usage retention window and
// event rows past the event retention window, one bounded delete per
// table. When an archiver is configured, pruned usage rows are written to
// cold storage first.
func (j *Jobs) CleanupOldData(ctx context.Context) Result {
	usageCutoff := time.Now().UTC().AddDate(0, 0, -j.cfg.UsageRetentionDays)
	eventCutoff := time.Now().UTC().AddDate(0, 0, -j.cfg.EventRetentionDays)

	if j.archiver != nil {
		var stale []models.SIMUsage
		if err := j.db.WithContext(ctx).Where("timestamp < ?", usageCutoff).Find(&stale).Error; err != nil {
			return Result{Success: false, Error: err.Error()}
		}
		if err := j.archiver.ArchiveUsage(ctx, usageCutoff, stale); err != nil {
			return Result{Success: false, Error: err.Error()}
		}
	}

	usageResult := j.db.WithContext(ctx).Where("timestamp < ?", usageCutoff).Delete(&models.SIMUsage{})
	if usageResult.Error != nil {
		return Result{Success: false, Error: usageResult.Error.Error()}
	}

	eventResult := j.db.WithContext(ctx).Where("timestamp < ?", eventCutoff).Delete(&models.SIMEvent{})
	if eventResult.Error != nil {
		return Result{
			Success: false,
			Counts:  map[string]int{"usage_deleted": int(usageResult.RowsAffected)},
			Error:   eventResult.Error.Error(),
		}
	}

	return Result{
		Success: true,
		Counts: map[string]int{
			"usage_deleted":  int(usageResult.RowsAffected),
			"events_deleted": int(eventResult.RowsAffected),
		},
	}
}
