package models

import (
	"time"
)

type SIM struct {
	ID             uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ICCID          string     `gorm:"column:iccid;type:varchar(20);uniqueIndex;not null" json:"iccid"`
	IMSI           string     `gorm:"type:varchar(15);index" json:"imsi"`
	MSISDN         string     `gorm:"type:varchar(15);index" json:"msisdn"`
	Status         string     `gorm:"type:varchar(20);index" json:"status"`
	Label          string     `gorm:"type:varchar(255)" json:"label"`
	IPAddress      string     `gorm:"type:varchar(45)" json:"ip_address"`
	IMEI           string     `gorm:"type:varchar(15)" json:"imei"`
	OrganizationID int        `json:"organization_id"`
	LastSyncedAt   *time.Time `json:"last_synced_at"`
	Metadata       string     `gorm:"type:text" json:"metadata,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type SIMUsage struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ICCID       string    `gorm:"column:iccid;type:varchar(20);not null;uniqueIndex:idx_usage_iccid_ts" json:"iccid"`
	Timestamp   time.Time `gorm:"not null;uniqueIndex:idx_usage_iccid_ts;index" json:"timestamp"`
	VolumeRx    int64     `gorm:"not null;default:0" json:"volume_rx"`
	VolumeTx    int64     `gorm:"not null;default:0" json:"volume_tx"`
	TotalVolume int64     `gorm:"not null;default:0" json:"total_volume"`
	SMSMO       int       `gorm:"column:sms_mo;not null;default:0" json:"sms_mo"`
	SMSMT       int       `gorm:"column:sms_mt;not null;default:0" json:"sms_mt"`
	CreatedAt   time.Time `json:"created_at"`
}

type SIMQuota struct {
	ID                   uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ICCID                string     `gorm:"column:iccid;type:varchar(20);not null;uniqueIndex:idx_quota_iccid_type" json:"iccid"`
	QuotaType            string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_quota_iccid_type" json:"quota_type"`
	Volume               int64      `json:"volume"`
	TotalVolume          int64      `json:"total_volume"`
	LastVolumeAdded      int64      `json:"last_volume_added"`
	LastStatusChangeDate *time.Time `json:"last_status_change_date"`
	Status               string     `gorm:"type:varchar(20)" json:"status"`
	ThresholdPercentage  int        `json:"threshold_percentage"`
	AutoReload           bool       `gorm:"not null;default:false" json:"auto_reload"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type SIMEvent struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ICCID       string    `gorm:"column:iccid;type:varchar(20);not null;uniqueIndex:idx_event_iccid_type_ts" json:"iccid"`
	EventType   string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_event_iccid_type_ts" json:"event_type"`
	Description string    `gorm:"type:text" json:"description"`
	Timestamp   time.Time `gorm:"not null;uniqueIndex:idx_event_iccid_type_ts;index" json:"timestamp"`
	CreatedAt   time.Time `json:"created_at"`
}

type SIMSMS struct {
	ID                 uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ICCID              string     `gorm:"column:iccid;type:varchar(20);not null;index" json:"iccid"`
	Direction          string     `gorm:"type:varchar(10);not null" json:"direction"`
	Message            string     `gorm:"type:text;not null" json:"message"`
	SourceAddress      string     `gorm:"type:varchar(20)" json:"source_address"`
	DestinationAddress string     `gorm:"type:varchar(20)" json:"destination_address"`
	Status             string     `gorm:"type:varchar(20)" json:"status"`
	SubmitDate         *time.Time `json:"submit_date"`
	DeliveryDate       *time.Time `json:"delivery_date"`
	CreatedAt          time.Time  `json:"created_at"`
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(100);not null" json:"-"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

type AccessLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp time.Time `gorm:"index;not null"`
	Method    string    `gorm:"type:varchar(10);not null"`
	Path      string    `gorm:"type:text;not null;index:,length:256"`
	Status    int       `gorm:"not null;index"`
	Duration  time.Duration
	ClientIP  string `gorm:"type:varchar(45);not null"`
	UserAgent string `gorm:"type:text"`
	BytesSent int    `gorm:"not null;default:0"`
}

func (SIM) TableName() string {
	return "sims"
}

func (SIMUsage) TableName() string {
	return "sim_usage"
}

func (SIMQuota) TableName() string {
	return "sim_quotas"
}

func (SIMEvent) TableName() string {
	return "sim_events"
}

func (SIMSMS) TableName() string {
	return "sim_sms"
}

func (User) TableName() string {
	return "users"
}

func (AccessLog) TableName() string {
	return "access_logs"
}
