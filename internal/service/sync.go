package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sdko-org/sim-fleet/internal/carrier"
	"github.com/sdko-org/sim-fleet/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm/clause"
)

// SyncUsage fetches usage entries for one SIM and upserts them by
// (iccid, timestamp). Re-running with the same carrier response produces
// no duplicate rows.
func (s *SIMService) SyncUsage(ctx context.Context, iccid string) (int, error) {
	report, err := s.carrier.GetSIMUsage(ctx, iccid, "", "")
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, entry := range report.Usage {
		usage := models.SIMUsage{
			ICCID:       iccid,
			Timestamp:   entry.Timestamp.UTC(),
			VolumeRx:    entry.VolumeRx,
			VolumeTx:    entry.VolumeTx,
			TotalVolume: entry.TotalVolume,
			SMSMO:       entry.SMSMO,
			SMSMT:       entry.SMSMT,
		}

		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "iccid"}, {Name: "timestamp"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"volume_rx", "volume_tx", "total_volume", "sms_mo", "sms_mt",
			}),
		}).Create(&usage).Error
		if err != nil {
			return synced, fmt.Errorf("upsert usage for %s at %s: %w", iccid, usage.Timestamp, err)
		}
		synced++
	}

	s.log.WithFields(logrus.Fields{
		"iccid":   iccid,
		"records": synced,
	}).Debug("Usage synced")
	return synced, nil
}

// SyncQuota fetches a quota from the carrier and upserts the local row by
// (iccid, quota_type). Returns the fetched quota row.
func (s *SIMService) SyncQuota(ctx context.Context, iccid, quotaType string) (*models.SIMQuota, error) {
	var quota *carrier.Quota
	var err error
	switch quotaType {
	case carrier.QuotaTypeData:
		quota, err = s.carrier.GetDataQuota(ctx, iccid)
	case carrier.QuotaTypeSMS:
		quota, err = s.carrier.GetSMSQuota(ctx, iccid)
	default:
		return nil, fmt.Errorf("unknown quota type: %s", quotaType)
	}
	if err != nil {
		return nil, err
	}

	row := models.SIMQuota{
		ICCID:                iccid,
		QuotaType:            quotaType,
		Volume:               quota.Volume,
		TotalVolume:          quota.TotalVolume,
		LastVolumeAdded:      quota.LastVolumeAdded,
		LastStatusChangeDate: quota.LastStatusChangeDate,
		Status:               quota.Status,
		ThresholdPercentage:  quota.ThresholdPercentage,
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "iccid"}, {Name: "quota_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"volume", "total_volume", "last_volume_added",
			"last_status_change_date", "status", "threshold_percentage", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Topup calls the carrier top-up endpoint and records the local quota
// delta.
func (s *SIMService) Topup(ctx context.Context, iccid, quotaType string, volume int64) error {
	if _, err := s.carrier.TopupSIM(ctx, iccid, quotaType, volume); err != nil {
		return err
	}

	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Model(&models.SIMQuota{}).
		Where("iccid = ? AND quota_type = ?", iccid, quotaType).
		Updates(map[string]any{
			"last_volume_added":       volume,
			"last_status_change_date": &now,
		}).Error
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"iccid":      iccid,
		"quota_type": quotaType,
		"volume":     volume,
	}).Info("Quota topped up")
	return nil
}

// SendSMS submits an SMS through the carrier and records the send locally.
func (s *SIMService) SendSMS(ctx context.Context, iccid, message, destination string) error {
	if _, err := s.carrier.SendSMS(ctx, iccid, message, destination); err != nil {
		return err
	}

	now := time.Now().UTC()
	record := models.SIMSMS{
		ICCID:              iccid,
		Direction:          "MT",
		Message:            message,
		DestinationAddress: destination,
		Status:             "sent",
		SubmitDate:         &now,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"iccid":  iccid,
		"length": len(message),
	}).Info("SMS sent")
	return nil
}

// SyncEvents fetches carrier events for one SIM and stores the ones the
// local table does not yet have. Duplicates are dropped by the unique
// index on (iccid, event_type, timestamp).
func (s *SIMService) SyncEvents(ctx context.Context, iccid string) (int, error) {
	list, err := s.carrier.GetSIMEvents(ctx, iccid, "")
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, ev := range list.Events {
		event := models.SIMEvent{
			ICCID:       iccid,
			EventType:   ev.EventType,
			Description: ev.Description,
			Timestamp:   ev.Timestamp.UTC(),
		}

		result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "iccid"}, {Name: "event_type"}, {Name: "timestamp"}},
			DoNothing: true,
		}).Create(&event)
		if result.Error != nil {
			return stored, result.Error
		}
		stored += int(result.RowsAffected)
	}
	return stored, nil
}

// Connectivity proxies the carrier's live connectivity view for one SIM.
func (s *SIMService) Connectivity(ctx context.Context, iccid string) (*carrier.Connectivity, error) {
	return s.carrier.GetSIMConnectivity(ctx, iccid)
}

// ResetConnectivity asks the carrier to re-establish the SIM's session.
func (s *SIMService) ResetConnectivity(ctx context.Context, iccid string) error {
	if err := s.carrier.ResetSIMConnectivity(ctx, iccid); err != nil {
		return err
	}
	s.log.WithField("iccid", iccid).Info("Connectivity reset requested")
	return nil
}

// ActiveSIMs lists SIMs currently in a serviceable state, used by the
// usage and quota jobs.
func (s *SIMService) ActiveSIMs(ctx context.Context) ([]models.SIM, error) {
	var sims []models.SIM
	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{"active", "enabled"}).
		Find(&sims).Error
	return sims, err
}

