package carrier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SIMDetails is the carrier's view of a single SIM.
type SIMDetails struct {
	ICCID     string `json:"iccid"`
	IMSI      string `json:"imsi"`
	MSISDN    string `json:"msisdn"`
	Status    string `json:"status"`
	IPAddress string `json:"ip_address"`
	IMEI      string `json:"imei"`
	Label     string `json:"label"`
}

type SIMPage struct {
	SIMs []SIMDetails `json:"sims"`
}

type SIMStatus struct {
	ICCID    string `json:"iccid"`
	Status   string `json:"status"`
	Location string `json:"location"`
}

type Connectivity struct {
	ICCID          string `json:"iccid"`
	Connected      bool   `json:"connected"`
	CellID         string `json:"cell_id"`
	SignalStrength int    `json:"signal_strength"`
	RAT            string `json:"rat"`
	CountryCode    string `json:"country_code"`
	OperatorName   string `json:"operator_name"`
}

type UsageEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	VolumeRx    int64     `json:"volume_rx"`
	VolumeTx    int64     `json:"volume_tx"`
	TotalVolume int64     `json:"total_volume"`
	SMSMO       int       `json:"sms_mo"`
	SMSMT       int       `json:"sms_mt"`
}

type UsageReport struct {
	ICCID string       `json:"iccid"`
	Usage []UsageEntry `json:"usage"`
}

type Event struct {
	ICCID       string    `json:"iccid"`
	EventType   string    `json:"event_type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

type EventList struct {
	Events []Event `json:"events"`
}

// GetSIMs lists SIMs one page at a time. Pagination is passed through;
// callers page themselves.
func (c *Client) GetSIMs(ctx context.Context, page, pageSize int) (*SIMPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))

	var result SIMPage
	if err := c.request(ctx, http.MethodGet, "/management-api/v1/sims", query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetSIM(ctx context.Context, iccid string) (*SIMDetails, error) {
	var result SIMDetails
	if err := c.request(ctx, http.MethodGet, "/management-api/v1/sims/"+iccid, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetSIMStatus(ctx context.Context, iccid string) (*SIMStatus, error) {
	var result SIMStatus
	if err := c.request(ctx, http.MethodGet, fmt.Sprintf("/management-api/v1/sims/%s/status", iccid), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetSIMConnectivity(ctx context.Context, iccid string) (*Connectivity, error) {
	var result Connectivity
	if err := c.request(ctx, http.MethodGet, fmt.Sprintf("/management-api/v1/sims/%s/connectivity", iccid), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ResetSIMConnectivity(ctx context.Context, iccid string) error {
	return c.request(ctx, http.MethodPost, fmt.Sprintf("/management-api/v1/sims/%s/connectivity/reset", iccid), nil, nil, nil)
}

// GetSIMUsage fetches usage entries, optionally bounded by ISO dates.
func (c *Client) GetSIMUsage(ctx context.Context, iccid string, startDate, endDate string) (*UsageReport, error) {
	query := url.Values{}
	if startDate != "" {
		query.Set("startDate", startDate)
	}
	if endDate != "" {
		query.Set("endDate", endDate)
	}

	var result UsageReport
	if err := c.request(ctx, http.MethodGet, fmt.Sprintf("/management-api/v1/sims/%s/usage", iccid), query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetSIMEvents(ctx context.Context, iccid string, eventType string) (*EventList, error) {
	query := url.Values{}
	if eventType != "" {
		query.Set("eventType", eventType)
	}

	var result EventList
	if err := c.request(ctx, http.MethodGet, fmt.Sprintf("/management-api/v1/sims/%s/events", iccid), query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
