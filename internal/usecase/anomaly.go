package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"sentinel/internal/domain"
)

const (
	scoreNewDevice        = 20
	scoreNewCountry       = 25
	scoreUnusualHourKnown = 15
	scoreUnusualHourInfer = 10
	scoreImpossibleTravel = 40
	scorePerFailedAttempt = 5
	scoreFailedCap        = 30
	scoreHighRiskCountry  = 15

	impossibleSpeedKmh    = 1000.0
	impossibleDistanceMin = 500.0
	travelLookback        = 24 * time.Hour
	failedLookback        = time.Hour
	minHistoryForHours    = 5
)

// highRiskCountries is the static country-code watchlist. +15 is a signal,
// not a block: the additive model needs corroborating flags to lock out.
var highRiskCountries = map[string]bool{
	"KP": true,
	"IR": true,
	"SY": true,
	"SD": true,
	"CU": true,
}

type AnomalyDetector struct{}

func NewAnomalyDetector() *AnomalyDetector {
	return &AnomalyDetector{}
}

// DetectAnomalies scores a login against the user's history. recent must be
// ordered newest first. typicalHours may be nil; with at least five prior
// successes the common hours are inferred from history instead.
func (d *AnomalyDetector) DetectAnomalies(current domain.LoginAttempt, recent []domain.LoginAttempt, typicalHours []int) domain.AnomalyResult {
	var result domain.AnomalyResult

	successes := make([]domain.LoginAttempt, 0, len(recent))
	for _, a := range recent {
		if a.Success {
			successes = append(successes, a)
		}
	}

	if current.DeviceFingerprint != "" && isNewDevice(current.DeviceFingerprint, successes) {
		addSignal(&result, scoreNewDevice, domain.FlagNewDevice, "login from a device not seen before")
	}

	if cc := current.Location.CountryCode; cc != "" && isNewCountry(cc, successes) {
		addSignal(&result, scoreNewCountry, domain.FlagNewCountry,
			fmt.Sprintf("first login from %s", cc))
	}

	if score, unusual := unusualHour(current.Timestamp, successes, typicalHours); unusual {
		addSignal(&result, score, domain.FlagUnusualHour,
			fmt.Sprintf("login at %02d:00 is outside usual hours", current.Timestamp.UTC().Hour()))
	}

	if km, hrs, impossible := impossibleTravel(current, recent); impossible {
		addSignal(&result, scoreImpossibleTravel, domain.FlagImpossibleTravel,
			fmt.Sprintf("%.0f km traveled in %.1f hours", km, hrs))
	}

	if failures := recentFailures(current.Timestamp, recent); failures >= 3 {
		score := failures * scorePerFailedAttempt
		if score > scoreFailedCap {
			score = scoreFailedCap
		}
		addSignal(&result, score, domain.FlagFailedAttempts,
			fmt.Sprintf("%d failed attempts in the last hour", failures))
	}

	if highRiskCountries[current.Location.CountryCode] {
		addSignal(&result, scoreHighRiskCountry, domain.FlagHighRiskCountry,
			fmt.Sprintf("login from high-risk country %s", current.Location.CountryCode))
	}

	if result.RiskScore > 100 {
		result.RiskScore = 100
	}
	result.IsAnomalous = result.RiskScore >= domain.AnomalyThreshold || len(result.Flags) >= 2
	return result
}

// GenerateRiskSummary renders the notification-email text for a scored login.
func (d *AnomalyDetector) GenerateRiskSummary(current domain.LoginAttempt, result domain.AnomalyResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sign-in attempt scored %d/100", result.RiskScore)
	if loc := formatLocation(current.Location); loc != "" {
		fmt.Fprintf(&b, " from %s", loc)
	}
	fmt.Fprintf(&b, " at %s.", current.Timestamp.UTC().Format("15:04 MST on Jan 2, 2006"))
	if len(result.Reasons) > 0 {
		b.WriteString(" Signals: ")
		b.WriteString(strings.Join(result.Reasons, "; "))
		b.WriteString(".")
	}
	if result.RiskScore >= domain.StepUpThreshold {
		b.WriteString(" Additional verification is required before this sign-in completes.")
	} else if result.RiskScore >= domain.NotifyThreshold {
		b.WriteString(" If this was not you, secure your account now.")
	}
	return b.String()
}

func addSignal(result *domain.AnomalyResult, score int, flag domain.AnomalyFlag, reason string) {
	result.RiskScore += score
	result.Flags = append(result.Flags, flag)
	result.Reasons = append(result.Reasons, reason)
}

func isNewDevice(fingerprint string, successes []domain.LoginAttempt) bool {
	for _, a := range successes {
		if a.DeviceFingerprint == fingerprint {
			return false
		}
	}
	return true
}

func isNewCountry(countryCode string, successes []domain.LoginAttempt) bool {
	for _, a := range successes {
		if a.Location.CountryCode == countryCode {
			return false
		}
	}
	return true
}

func unusualHour(ts time.Time, successes []domain.LoginAttempt, typicalHours []int) (int, bool) {
	hour := ts.UTC().Hour()
	if len(typicalHours) > 0 {
		for _, h := range typicalHours {
			if h == hour {
				return 0, false
			}
		}
		return scoreUnusualHourKnown, true
	}
	if len(successes) < minHistoryForHours {
		return 0, false
	}
	common := commonHours(successes)
	if common[hour] {
		return 0, false
	}
	return scoreUnusualHourInfer, true
}

// commonHours returns the top half of the hour histogram built from prior
// successful logins.
func commonHours(successes []domain.LoginAttempt) map[int]bool {
	counts := map[int]int{}
	for _, a := range successes {
		counts[a.Timestamp.UTC().Hour()]++
	}
	hours := make([]int, 0, len(counts))
	for h := range counts {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		if counts[hours[i]] != counts[hours[j]] {
			return counts[hours[i]] > counts[hours[j]]
		}
		return hours[i] < hours[j]
	})
	keep := (len(hours) + 1) / 2
	out := make(map[int]bool, keep)
	for _, h := range hours[:keep] {
		out[h] = true
	}
	return out
}

func impossibleTravel(current domain.LoginAttempt, recent []domain.LoginAttempt) (km float64, hrs float64, impossible bool) {
	if !current.Location.HasCoordinates() {
		return 0, 0, false
	}
	var prior *domain.LoginAttempt
	for i := range recent {
		if recent[i].Location.HasCoordinates() && recent[i].Timestamp.Before(current.Timestamp) {
			prior = &recent[i]
			break
		}
	}
	if prior == nil {
		return 0, 0, false
	}
	elapsed := current.Timestamp.Sub(prior.Timestamp)
	if elapsed >= travelLookback {
		return 0, 0, false
	}
	km = Haversine(current.Location.Lat, current.Location.Lon, prior.Location.Lat, prior.Location.Lon)
	hrs = elapsed.Hours()
	if hrs < 0.01 {
		hrs = 0.01
	}
	if km > hrs*impossibleSpeedKmh && km > impossibleDistanceMin {
		return km, hrs, true
	}
	return km, hrs, false
}

func recentFailures(now time.Time, recent []domain.LoginAttempt) int {
	failures := 0
	cutoff := now.Add(-failedLookback)
	for _, a := range recent {
		if !a.Success && a.Timestamp.After(cutoff) && a.Timestamp.Before(now) {
			failures++
		}
	}
	return failures
}

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func formatLocation(loc domain.Location) string {
	if loc.Unknown {
		return "an unknown location"
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{loc.City, loc.Region, loc.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
