package db

import "time"

type AuditLogEntryModel struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	UserID         string    `gorm:"type:uuid;index;not null"`
	ActionType     string    `gorm:"index;not null"`
	ActionTarget   string    `gorm:"not null"`
	ActionDataJSON []byte    `gorm:"column:action_data;type:jsonb;not null"`
	ApprovalStatus string    `gorm:"index;not null"`
	ApprovalHash   *string   `gorm:"index"`
	ApprovedAt     *time.Time
	IPAddress      *string
	UserAgent      *string
	CreatedAt      time.Time `gorm:"index;not null"`
}

func (AuditLogEntryModel) TableName() string { return "audit_log_entries" }

type UsageRecordModel struct {
	ID         string    `gorm:"type:uuid;primaryKey"`
	UserID     string    `gorm:"type:uuid;index;not null"`
	ActionType string    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"index;not null"`
}

func (UsageRecordModel) TableName() string { return "usage_records" }

type LoginAttemptModel struct {
	ID                string    `gorm:"type:uuid;primaryKey"`
	UserID            string    `gorm:"type:uuid;index;not null"`
	IPAddress         string    `gorm:"not null"`
	UserAgent         string
	City              string
	Region            string
	Country           string
	CountryCode       string
	Lat               float64
	Lon               float64
	LocationUnknown   bool      `gorm:"not null"`
	DeviceFingerprint *string   `gorm:"index"`
	Success           bool      `gorm:"index;not null"`
	CreatedAt         time.Time `gorm:"index;not null"`
}

func (LoginAttemptModel) TableName() string { return "login_attempts" }

type SubscriptionModel struct {
	UserID    string    `gorm:"type:uuid;primaryKey"`
	Tier      string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (SubscriptionModel) TableName() string { return "subscriptions" }
