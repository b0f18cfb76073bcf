package carrier

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	QuotaTypeData = "data"
	QuotaTypeSMS  = "sms"
)

type Quota struct {
	Volume               int64      `json:"volume"`
	TotalVolume          int64      `json:"total_volume"`
	ExpiryDate           *time.Time `json:"expiry_date"`
	PeakThroughput       int64      `json:"peak_throughput"`
	LastVolumeAdded      int64      `json:"last_volume_added"`
	LastStatusChangeDate *time.Time `json:"last_status_change_date"`
	ThresholdPercentage  int        `json:"threshold_percentage"`
	Status               string     `json:"status"`
}

type TopupResult struct {
	ICCID     string `json:"iccid"`
	QuotaType string `json:"quota_type"`
	Volume    int64  `json:"volume"`
	Status    string `json:"status"`
}

type topupRequest struct {
	Volume int64 `json:"volume"`
}

func (c *Client) GetDataQuota(ctx context.Context, iccid string) (*Quota, error) {
	var result Quota
	if err := c.request(ctx, http.MethodGet, fmt.Sprintf("/management-api/v1/sims/%s/quota/data", iccid), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetSMSQuota(ctx context.Context, iccid string) (*Quota, error) {
	var result Quota
	if err := c.request(ctx, http.MethodGet, fmt.Sprintf("/management-api/v1/sims/%s/quota/sms", iccid), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) TopupSIM(ctx context.Context, iccid, quotaType string, volume int64) (*TopupResult, error) {
	var result TopupResult
	path := fmt.Sprintf("/management-api/v1/sims/%s/quota/%s/topup", iccid, quotaType)
	if err := c.request(ctx, http.MethodPost, path, nil, topupRequest{Volume: volume}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
