package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sdko-org/sim-fleet/internal/carrier"
	"github.com/sdko-org/sim-fleet/internal/models"
	"github.com/sdko-org/sim-fleet/internal/validate"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// syncPageSize is the carrier listing page size used by SyncAllSIMs.
const syncPageSize = 100

// ErrAlreadyExists is returned when creating a SIM whose ICCID is taken.
var ErrAlreadyExists = errors.New("sim already exists")

// ErrInvalidICCID is returned for malformed ICCIDs before any carrier call.
var ErrInvalidICCID = errors.New("invalid iccid format")

// CarrierAPI is the subset of the carrier client the service depends on.
type CarrierAPI interface {
	GetSIMs(ctx context.Context, page, pageSize int) (*carrier.SIMPage, error)
	GetSIM(ctx context.Context, iccid string) (*carrier.SIMDetails, error)
	GetSIMUsage(ctx context.Context, iccid, startDate, endDate string) (*carrier.UsageReport, error)
	GetSIMEvents(ctx context.Context, iccid, eventType string) (*carrier.EventList, error)
	GetSIMConnectivity(ctx context.Context, iccid string) (*carrier.Connectivity, error)
	ResetSIMConnectivity(ctx context.Context, iccid string) error
	GetDataQuota(ctx context.Context, iccid string) (*carrier.Quota, error)
	GetSMSQuota(ctx context.Context, iccid string) (*carrier.Quota, error)
	TopupSIM(ctx context.Context, iccid, quotaType string, volume int64) (*carrier.TopupResult, error)
	SendSMS(ctx context.Context, iccid, message, destination string) (*carrier.SendSMSResult, error)
}

// SIMService reconciles local persisted state with the carrier's view and
// serves the CRUD surface of the API.
type SIMService struct {
	db      *gorm.DB
	carrier CarrierAPI
	log     *logrus.Entry
}

// SyncAllResult reports one full listing pass.
type SyncAllResult struct {
	Processed int
	Errors    int
}

func NewSIMService(logger *logrus.Logger, db *gorm.DB, api CarrierAPI) *SIMService {
	return &SIMService{
		db:      db,
		carrier: api,
		log:     logger.WithField("component", "sim_service"),
	}
}

func (s *SIMService) GetSIM(ctx context.Context, iccid string) (*models.SIM, error) {
	var sim models.SIM
	err := s.db.WithContext(ctx).Where("iccid = ?", iccid).First(&sim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sim, nil
}

func (s *SIMService) ListSIMs(ctx context.Context, page, pageSize int, status string) ([]models.SIM, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 100
	}

	query := s.db.WithContext(ctx).Model(&models.SIM{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sims []models.SIM
	err := query.Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&sims).Error
	if err != nil {
		return nil, 0, err
	}

	return sims, total, nil
}

func (s *SIMService) CreateSIM(ctx context.Context, sim *models.SIM) error {
	if !validate.ICCID(sim.ICCID) {
		return fmt.Errorf("%w: %s", ErrInvalidICCID, sim.ICCID)
	}

	existing, err := s.GetSIM(ctx, sim.ICCID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, sim.ICCID)
	}

	if err := s.db.WithContext(ctx).Create(sim).Error; err != nil {
		return err
	}

	s.log.WithField("iccid", sim.ICCID).Info("SIM created")
	return nil
}

func (s *SIMService) UpdateSIM(ctx context.Context, iccid, label, metadata string) (*models.SIM, error) {
	sim, err := s.GetSIM(ctx, iccid)
	if err != nil || sim == nil {
		return nil, err
	}

	updates := map[string]any{}
	if label != "" {
		updates["label"] = label
	}
	if metadata != "" {
		updates["metadata"] = metadata
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(sim).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	s.log.WithField("iccid", iccid).Info("SIM updated")
	return sim, nil
}

// SyncSIM fetches a single SIM from the carrier and upserts the local row.
// A carrier 404 yields (nil, nil): the SIM is unknown upstream, which is a
// recoverable outcome rather than an error.
func (s *SIMService) SyncSIM(ctx context.Context, iccid string) (*models.SIM, error) {
	if !validate.ICCID(iccid) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidICCID, iccid)
	}

	details, err := s.carrier.GetSIM(ctx, iccid)
	if err != nil {
		if carrier.IsNotFound(err) {
			s.log.WithField("iccid", iccid).Warn("SIM not found at carrier")
			return nil, nil
		}
		return nil, err
	}

	if err := s.upsertSIM(ctx, details); err != nil {
		return nil, err
	}

	sim, err := s.GetSIM(ctx, iccid)
	if err != nil {
		return nil, err
	}

	s.log.WithField("iccid", iccid).Info("SIM synced from carrier")
	return sim, nil
}

// SyncAllSIMs pages through the carrier listing until a short page and
// upserts every SIM. A failed item is logged and counted; the pass
// continues. Only a listing-page fetch failure aborts the pass.
func (s *SIMService) SyncAllSIMs(ctx context.Context) (SyncAllResult, error) {
	var result SyncAllResult

	for page := 1; ; page++ {
		simPage, err := s.carrier.GetSIMs(ctx, page, syncPageSize)
		if err != nil {
			return result, fmt.Errorf("fetch sim page %d: %w", page, err)
		}
		if len(simPage.SIMs) == 0 {
			break
		}

		for i := range simPage.SIMs {
			details := &simPage.SIMs[i]
			if details.ICCID == "" {
				continue
			}
			if err := s.upsertSIM(ctx, details); err != nil {
				s.log.WithFields(logrus.Fields{
					"iccid": details.ICCID,
					"error": err,
				}).Error("SIM upsert failed")
				result.Errors++
				continue
			}
			result.Processed++
		}

		if len(simPage.SIMs) < syncPageSize {
			break
		}
	}

	s.log.WithFields(logrus.Fields{
		"processed": result.Processed,
		"errors":    result.Errors,
	}).Info("All SIMs synced")
	return result, nil
}

func (s *SIMService) upsertSIM(ctx context.Context, details *carrier.SIMDetails) error {
	now := time.Now().UTC()
	sim := models.SIM{
		ICCID:        details.ICCID,
		IMSI:         details.IMSI,
		MSISDN:       details.MSISDN,
		Status:       details.Status,
		IPAddress:    details.IPAddress,
		IMEI:         details.IMEI,
		LastSyncedAt: &now,
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "iccid"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"imsi", "msisdn", "status", "ip_address", "imei", "last_synced_at", "updated_at",
		}),
	}).Create(&sim).Error
}
