package carrier

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type SMSMessage struct {
	ID                 string     `json:"id"`
	ICCID              string     `json:"iccid"`
	Direction          string     `json:"direction"`
	Message            string     `json:"message"`
	SourceAddress      string     `json:"source_address"`
	DestinationAddress string     `json:"destination_address"`
	Status             string     `json:"status"`
	SubmitDate         *time.Time `json:"submit_date"`
	DeliveryDate       *time.Time `json:"delivery_date"`
}

type SMSList struct {
	Messages []SMSMessage `json:"messages"`
}

type SendSMSResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type sendSMSRequest struct {
	Message     string `json:"message"`
	Destination string `json:"destination,omitempty"`
}

// SendSMS submits a mobile-terminated SMS to the given SIM.
func (c *Client) SendSMS(ctx context.Context, iccid, message, destination string) (*SendSMSResult, error) {
	var result SendSMSResult
	path := fmt.Sprintf("/management-api/v1/sims/%s/sms", iccid)
	if err := c.request(ctx, http.MethodPost, path, nil, sendSMSRequest{Message: message, Destination: destination}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetSMSMessages(ctx context.Context, iccid string) (*SMSList, error) {
	var result SMSList
	if err := c.request(ctx, http.MethodGet, fmt.Sprintf("/management-api/v1/sims/%s/sms", iccid), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
