package domain

import "time"

// Location is the coarse geolocation attached to a login. A zero Location
// with Unknown=true means the lookup failed or the IP was private.
type Location struct {
	City        string
	Region      string
	Country     string
	CountryCode string
	Timezone    string
	ISP         string
	Lat         float64
	Lon         float64
	Unknown     bool
}

func (l Location) HasCoordinates() bool {
	return !l.Unknown && (l.Lat != 0 || l.Lon != 0)
}

// LoginAttempt is derived from audit history and never mutated once recorded.
type LoginAttempt struct {
	UserID            string
	Timestamp         time.Time
	IPAddress         string
	UserAgent         string
	Location          Location
	DeviceFingerprint string
	Success           bool
}

type AnomalyFlag string

const (
	FlagNewDevice        AnomalyFlag = "new_device"
	FlagNewCountry       AnomalyFlag = "new_country"
	FlagUnusualHour      AnomalyFlag = "unusual_hour"
	FlagImpossibleTravel AnomalyFlag = "impossible_travel"
	FlagFailedAttempts   AnomalyFlag = "recent_failed_attempts"
	FlagHighRiskCountry  AnomalyFlag = "high_risk_country"
)

// AnomalyResult is ephemeral, computed per login.
type AnomalyResult struct {
	IsAnomalous bool
	RiskScore   int
	Reasons     []string
	Flags       []AnomalyFlag
}

// Caller-facing thresholds: at NotifyThreshold a device-verification email is
// dispatched; at StepUpThreshold the caller should require additional
// verification before completing the login.
const (
	AnomalyThreshold = 30
	NotifyThreshold  = 50
	StepUpThreshold  = 70
)
