package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sdko-org/sim-fleet/internal/carrier"
	"github.com/sdko-org/sim-fleet/internal/database"
	"github.com/sdko-org/sim-fleet/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testICCID = "8991101200003204514"

type fakeCarrier struct {
	sims      map[string]*carrier.SIMDetails
	simPages  [][]carrier.SIMDetails
	usage     map[string][]carrier.UsageEntry
	dataQuota map[string]*carrier.Quota
	events    map[string][]carrier.Event

	topups   []string
	smsSends []string
	resets   []string
	err      error
}

func newFakeCarrier() *fakeCarrier {
	return &fakeCarrier{
		sims:      make(map[string]*carrier.SIMDetails),
		usage:     make(map[string][]carrier.UsageEntry),
		dataQuota: make(map[string]*carrier.Quota),
		events:    make(map[string][]carrier.Event),
	}
}

func notFound() error {
	return &carrier.APIError{StatusCode: http.StatusNotFound, Body: "not found"}
}

func (f *fakeCarrier) GetSIMs(ctx context.Context, page, pageSize int) (*carrier.SIMPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if page > len(f.simPages) {
		return &carrier.SIMPage{}, nil
	}
	return &carrier.SIMPage{SIMs: f.simPages[page-1]}, nil
}

func (f *fakeCarrier) GetSIM(ctx context.Context, iccid string) (*carrier.SIMDetails, error) {
	if f.err != nil {
		return nil, f.err
	}
	sim, ok := f.sims[iccid]
	if !ok {
		return nil, notFound()
	}
	return sim, nil
}

func (f *fakeCarrier) GetSIMUsage(ctx context.Context, iccid, startDate, endDate string) (*carrier.UsageReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &carrier.UsageReport{ICCID: iccid, Usage: f.usage[iccid]}, nil
}

func (f *fakeCarrier) GetSIMEvents(ctx context.Context, iccid, eventType string) (*carrier.EventList, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &carrier.EventList{Events: f.events[iccid]}, nil
}

func (f *fakeCarrier) GetSIMConnectivity(ctx context.Context, iccid string) (*carrier.Connectivity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &carrier.Connectivity{ICCID: iccid, Connected: true, RAT: "LTE-M"}, nil
}

func (f *fakeCarrier) ResetSIMConnectivity(ctx context.Context, iccid string) error {
	if f.err != nil {
		return f.err
	}
	f.resets = append(f.resets, iccid)
	return nil
}

func (f *fakeCarrier) GetDataQuota(ctx context.Context, iccid string) (*carrier.Quota, error) {
	if f.err != nil {
		return nil, f.err
	}
	quota, ok := f.dataQuota[iccid]
	if !ok {
		return nil, notFound()
	}
	return quota, nil
}

func (f *fakeCarrier) GetSMSQuota(ctx context.Context, iccid string) (*carrier.Quota, error) {
	return f.GetDataQuota(ctx, iccid)
}

func (f *fakeCarrier) TopupSIM(ctx context.Context, iccid, quotaType string, volume int64) (*carrier.TopupResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.topups = append(f.topups, fmt.Sprintf("%s/%s/%d", iccid, quotaType, volume))
	return &carrier.TopupResult{ICCID: iccid, QuotaType: quotaType, Volume: volume, Status: "ok"}, nil
}

func (f *fakeCarrier) SendSMS(ctx context.Context, iccid, message, destination string) (*carrier.SendSMSResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.smsSends = append(f.smsSends, iccid+":"+message)
	return &carrier.SendSMSResult{ID: "sms-1", Status: "sent"}, nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func testService(t *testing.T) (*SIMService, *fakeCarrier, *gorm.DB) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	db := testDB(t)
	api := newFakeCarrier()
	return NewSIMService(logger, db, api), api, db
}

func TestSyncSIMCreatesLocalRecord(t *testing.T) {
	svc, api, _ := testService(t)
	api.sims[testICCID] = &carrier.SIMDetails{
		ICCID:  testICCID,
		IMSI:   "310150123456789",
		Status: "active",
	}

	sim, err := svc.SyncSIM(context.Background(), testICCID)
	require.NoError(t, err)
	require.NotNil(t, sim)
	assert.Equal(t, "active", sim.Status)
	assert.Equal(t, "310150123456789", sim.IMSI)
	require.NotNil(t, sim.LastSyncedAt)

	// Exactly one row.
	sims, total, err := svc.ListSIMs(context.Background(), 1, 100, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, sims, 1)
}

func TestSyncSIMUpdatesExistingRecord(t *testing.T) {
	svc, api, _ := testService(t)
	require.NoError(t, svc.CreateSIM(context.Background(), &models.SIM{ICCID: testICCID, Label: "fleet-head"}))

	api.sims[testICCID] = &carrier.SIMDetails{ICCID: testICCID, Status: "disabled", MSISDN: "882360001234567"}

	sim, err := svc.SyncSIM(context.Background(), testICCID)
	require.NoError(t, err)
	require.NotNil(t, sim)
	assert.Equal(t, "disabled", sim.Status)
	assert.Equal(t, "882360001234567", sim.MSISDN)
	assert.Equal(t, "fleet-head", sim.Label, "label is local-only and survives sync")
}

func TestSyncSIMNotFoundIsRecoverable(t *testing.T) {
	svc, _, _ := testService(t)

	sim, err := svc.SyncSIM(context.Background(), testICCID)
	assert.NoError(t, err)
	assert.Nil(t, sim)
}

func TestSyncSIMRejectsInvalidICCID(t *testing.T) {
	svc, _, _ := testService(t)

	_, err := svc.SyncSIM(context.Background(), "not-an-iccid")
	assert.ErrorIs(t, err, ErrInvalidICCID)
}

func TestSyncSIMPropagatesCarrierFailure(t *testing.T) {
	svc, api, _ := testService(t)
	api.err = &carrier.APIError{StatusCode: http.StatusInternalServerError, Body: "boom"}

	_, err := svc.SyncSIM(context.Background(), testICCID)
	var apiErr *carrier.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestSyncAllSIMsPagesUntilShortPage(t *testing.T) {
	svc, api, _ := testService(t)

	full := make([]carrier.SIMDetails, syncPageSize)
	for i := range full {
		full[i] = carrier.SIMDetails{ICCID: fmt.Sprintf("89911012000032%05d", i), Status: "active"}
	}
	short := []carrier.SIMDetails{
		{ICCID: "8991101200009999901", Status: "active"},
		{ICCID: "", Status: "active"}, // skipped, no key
	}
	api.simPages = [][]carrier.SIMDetails{full, short}

	result, err := svc.SyncAllSIMs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, syncPageSize+1, result.Processed)
	assert.Equal(t, 0, result.Errors)
}

func TestSyncAllSIMsAbortsOnPageFailure(t *testing.T) {
	svc, api, _ := testService(t)
	api.err = errors.New("listing unavailable")

	_, err := svc.SyncAllSIMs(context.Background())
	assert.Error(t, err)
}

func TestSyncUsageIdempotent(t *testing.T) {
	svc, api, db := testService(t)
	ts := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	api.usage[testICCID] = []carrier.UsageEntry{
		{Timestamp: ts, VolumeRx: 100, VolumeTx: 50, TotalVolume: 150, SMSMO: 1},
		{Timestamp: ts.Add(time.Hour), VolumeRx: 10, VolumeTx: 5, TotalVolume: 15},
	}

	synced, err := svc.SyncUsage(context.Background(), testICCID)
	require.NoError(t, err)
	assert.Equal(t, 2, synced)

	// Re-running with the identical carrier response must not add rows.
	_, err = svc.SyncUsage(context.Background(), testICCID)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.SIMUsage{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestSyncUsageOverwritesCountersByTimestamp(t *testing.T) {
	svc, api, db := testService(t)
	ts := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	api.usage[testICCID] = []carrier.UsageEntry{{Timestamp: ts, TotalVolume: 150}}

	_, err := svc.SyncUsage(context.Background(), testICCID)
	require.NoError(t, err)

	api.usage[testICCID] = []carrier.UsageEntry{{Timestamp: ts, TotalVolume: 300, SMSMT: 2}}
	_, err = svc.SyncUsage(context.Background(), testICCID)
	require.NoError(t, err)

	var row models.SIMUsage
	require.NoError(t, db.Where("iccid = ?", testICCID).First(&row).Error)
	assert.Equal(t, int64(300), row.TotalVolume)
	assert.Equal(t, 2, row.SMSMT)
}

func TestSyncQuotaUpsertsByNaturalKey(t *testing.T) {
	svc, api, db := testService(t)
	api.dataQuota[testICCID] = &carrier.Quota{Volume: 500, TotalVolume: 1024, Status: "active"}

	_, err := svc.SyncQuota(context.Background(), testICCID, carrier.QuotaTypeData)
	require.NoError(t, err)

	api.dataQuota[testICCID].Volume = 400
	quota, err := svc.SyncQuota(context.Background(), testICCID, carrier.QuotaTypeData)
	require.NoError(t, err)
	assert.Equal(t, int64(400), quota.Volume)

	var count int64
	require.NoError(t, db.Model(&models.SIMQuota{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSyncQuotaRejectsUnknownType(t *testing.T) {
	svc, _, _ := testService(t)
	_, err := svc.SyncQuota(context.Background(), testICCID, "voice")
	assert.Error(t, err)
}

func TestTopupRecordsLocalDelta(t *testing.T) {
	svc, api, db := testService(t)
	api.dataQuota[testICCID] = &carrier.Quota{Volume: 100, TotalVolume: 1024}
	_, err := svc.SyncQuota(context.Background(), testICCID, carrier.QuotaTypeData)
	require.NoError(t, err)

	require.NoError(t, svc.Topup(context.Background(), testICCID, carrier.QuotaTypeData, 512))
	assert.Len(t, api.topups, 1)

	var quota models.SIMQuota
	require.NoError(t, db.Where("iccid = ? AND quota_type = ?", testICCID, "data").First(&quota).Error)
	assert.Equal(t, int64(512), quota.LastVolumeAdded)
	assert.NotNil(t, quota.LastStatusChangeDate)
}

func TestSendSMSRecordsSend(t *testing.T) {
	svc, api, db := testService(t)

	require.NoError(t, svc.SendSMS(context.Background(), testICCID, "reboot", "882360001234567"))
	assert.Len(t, api.smsSends, 1)

	var record models.SIMSMS
	require.NoError(t, db.Where("iccid = ?", testICCID).First(&record).Error)
	assert.Equal(t, "MT", record.Direction)
	assert.Equal(t, "sent", record.Status)
	assert.Equal(t, "reboot", record.Message)
}

func TestSendSMSCarrierFailureLeavesNoRecord(t *testing.T) {
	svc, api, db := testService(t)
	api.err = errors.New("carrier down")

	err := svc.SendSMS(context.Background(), testICCID, "reboot", "")
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.SIMSMS{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestCreateSIMDuplicate(t *testing.T) {
	svc, _, _ := testService(t)
	require.NoError(t, svc.CreateSIM(context.Background(), &models.SIM{ICCID: testICCID}))

	err := svc.CreateSIM(context.Background(), &models.SIM{ICCID: testICCID})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateSIMInvalidICCID(t *testing.T) {
	svc, _, _ := testService(t)
	err := svc.CreateSIM(context.Background(), &models.SIM{ICCID: "12345"})
	assert.ErrorIs(t, err, ErrInvalidICCID)
}

func TestListSIMsStatusFilterAndPaging(t *testing.T) {
	svc, _, db := testService(t)
	for i := 0; i < 5; i++ {
		status := "active"
		if i%2 == 1 {
			status = "disabled"
		}
		require.NoError(t, db.Create(&models.SIM{
			ICCID:  fmt.Sprintf("89911012000032045%02d", i),
			Status: status,
		}).Error)
	}

	sims, total, err := svc.ListSIMs(context.Background(), 1, 2, "active")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, sims, 2)
}

func TestActiveSIMs(t *testing.T) {
	svc, _, db := testService(t)
	require.NoError(t, db.Create(&models.SIM{ICCID: "8991101200003204501", Status: "active"}).Error)
	require.NoError(t, db.Create(&models.SIM{ICCID: "8991101200003204502", Status: "enabled"}).Error)
	require.NoError(t, db.Create(&models.SIM{ICCID: "8991101200003204503", Status: "disabled"}).Error)

	sims, err := svc.ActiveSIMs(context.Background())
	require.NoError(t, err)
	assert.Len(t, sims, 2)
}

func TestSyncEventsSkipsKnownEvents(t *testing.T) {
	svc, api, db := testService(t)
	ts := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	api.events[testICCID] = []carrier.Event{{ICCID: testICCID, EventType: "attach", Timestamp: ts}}

	stored, err := svc.SyncEvents(context.Background(), testICCID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored)

	stored, err = svc.SyncEvents(context.Background(), testICCID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored)

	var count int64
	require.NoError(t, db.Model(&models.SIMEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSyncEventsKeepsDistinctEvents(t *testing.T) {
	svc, api, db := testService(t)
	ts := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	api.events[testICCID] = []carrier.Event{
		{ICCID: testICCID, EventType: "attach", Timestamp: ts},
		{ICCID: testICCID, EventType: "detach", Timestamp: ts},
		{ICCID: testICCID, EventType: "attach", Timestamp: ts.Add(time.Hour)},
	}

	stored, err := svc.SyncEvents(context.Background(), testICCID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored)

	var count int64
	require.NoError(t, db.Model(&models.SIMEvent{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestConnectivityProxiesCarrier(t *testing.T) {
	svc, _, _ := testService(t)

	conn, err := svc.Connectivity(context.Background(), testICCID)
	require.NoError(t, err)
	assert.True(t, conn.Connected)
	assert.Equal(t, "LTE-M", conn.RAT)
}

func TestResetConnectivity(t *testing.T) {
	svc, api, _ := testService(t)

	require.NoError(t, svc.ResetConnectivity(context.Background(), testICCID))
	assert.Equal(t, []string{testICCID}, api.resets)

	api.err = errors.New("carrier down")
	assert.Error(t, svc.ResetConnectivity(context.Background(), testICCID))
}
