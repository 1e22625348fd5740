package usecase

import (
	"math"
	"strings"
	"testing"
	"time"

	"sentinel/internal/domain"
)

var (
	londonLoc = domain.Location{City: "London", Country: "United Kingdom", CountryCode: "GB", Lat: 51.5074, Lon: -0.1278}
	tokyoLoc  = domain.Location{City: "Tokyo", Country: "Japan", CountryCode: "JP", Lat: 35.6762, Lon: 139.6503}
)

func successAt(ts time.Time, fingerprint string, loc domain.Location) domain.LoginAttempt {
	return domain.LoginAttempt{
		UserID:            "user-1",
		Timestamp:         ts,
		Location:          loc,
		DeviceFingerprint: fingerprint,
		Success:           true,
	}
}

func TestDetectAnomaliesTypicalLoginScoresZero(t *testing.T) {
	d := NewAnomalyDetector()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	recent := []domain.LoginAttempt{
		successAt(now.Add(-24*time.Hour), "dev-1", londonLoc),
		successAt(now.Add(-48*time.Hour), "dev-1", londonLoc),
	}
	current := successAt(now, "dev-1", londonLoc)

	result := d.DetectAnomalies(current, recent, []int{9})
	if result.RiskScore != 0 {
		t.Fatalf("expected score 0, got %d (reasons %v)", result.RiskScore, result.Reasons)
	}
	if result.IsAnomalous {
		t.Fatal("typical login must not be anomalous")
	}
	if len(result.Flags) != 0 {
		t.Fatalf("expected no flags, got %v", result.Flags)
	}
}

func TestDetectAnomaliesImpossibleTravel(t *testing.T) {
	d := NewAnomalyDetector()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	recent := []domain.LoginAttempt{
		successAt(now.Add(-time.Hour), "dev-1", londonLoc),
	}
	current := successAt(now, "dev-1", tokyoLoc)

	result := d.DetectAnomalies(current, recent, []int{9})
	if !hasFlag(result, domain.FlagImpossibleTravel) {
		t.Fatalf("expected impossible travel flag, got %v", result.Flags)
	}
	if !hasFlag(result, domain.FlagNewCountry) {
		t.Fatalf("expected new country flag, got %v", result.Flags)
	}
	if result.RiskScore != 65 {
		t.Fatalf("expected score 65, got %d", result.RiskScore)
	}
	if !result.IsAnomalous {
		t.Fatal("expected anomalous login")
	}
}

func TestDetectAnomaliesPlausibleTravelNotFlagged(t *testing.T) {
	d := NewAnomalyDetector()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	parisLoc := domain.Location{City: "Paris", Country: "France", CountryCode: "FR", Lat: 48.8566, Lon: 2.3522}
	recent := []domain.LoginAttempt{
		successAt(now.Add(-3*time.Hour), "dev-1", londonLoc),
		successAt(now.Add(-30*time.Hour), "dev-1", parisLoc),
	}
	current := successAt(now, "dev-1", parisLoc)

	result := d.DetectAnomalies(current, recent, []int{9})
	if hasFlag(result, domain.FlagImpossibleTravel) {
		t.Fatalf("London to Paris in three hours is reachable, got flags %v", result.Flags)
	}
}

func TestDetectAnomaliesNewDeviceAndCountry(t *testing.T) {
	d := NewAnomalyDetector()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	recent := []domain.LoginAttempt{
		successAt(now.Add(-72*time.Hour), "dev-1", londonLoc),
	}
	current := successAt(now, "dev-2", domain.Location{Country: "Japan", CountryCode: "JP"})

	result := d.DetectAnomalies(current, recent, []int{9})
	if !hasFlag(result, domain.FlagNewDevice) || !hasFlag(result, domain.FlagNewCountry) {
		t.Fatalf("expected new device and new country, got %v", result.Flags)
	}
	if result.RiskScore != 45 {
		t.Fatalf("expected score 45, got %d", result.RiskScore)
	}
	if !result.IsAnomalous {
		t.Fatal("two flags must mark the login anomalous")
	}
}

func TestDetectAnomaliesFailedAttemptsCapped(t *testing.T) {
	d := NewAnomalyDetector()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	recent := []domain.LoginAttempt{
		successAt(now.Add(-24*time.Hour), "dev-1", londonLoc),
	}
	for i := 1; i <= 10; i++ {
		recent = append(recent, domain.LoginAttempt{
			UserID:    "user-1",
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
			Location:  domain.Location{CountryCode: "GB"},
			Success:   false,
		})
	}
	current := successAt(now, "dev-1", londonLoc)

	result := d.DetectAnomalies(current, recent, []int{9})
	if !hasFlag(result, domain.FlagFailedAttempts) {
		t.Fatalf("expected failed attempts flag, got %v", result.Flags)
	}
	if result.RiskScore != 30 {
		t.Fatalf("failed attempt score should cap at 30, got %d", result.RiskScore)
	}
}

func TestDetectAnomaliesFewFailuresIgnored(t *testing.T) {
	d := NewAnomalyDetector()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	recent := []domain.LoginAttempt{
		successAt(now.Add(-24*time.Hour), "dev-1", londonLoc),
		{UserID: "user-1", Timestamp: now.Add(-5 * time.Minute), Success: false},
		{UserID: "user-1", Timestamp: now.Add(-10 * time.Minute), Success: false},
	}
	current := successAt(now, "dev-1", londonLoc)

	result := d.DetectAnomalies(current, recent, []int{9})
	if hasFlag(result, domain.FlagFailedAttempts) {
		t.Fatalf("two failures should not trip the flag, got %v", result.Flags)
	}
}

func TestDetectAnomaliesUnusualHourInferred(t *testing.T) {
	d := NewAnomalyDetector()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	var recent []domain.LoginAttempt
	for i := 1; i <= 5; i++ {
		recent = append(recent, successAt(base.Add(-time.Duration(i)*24*time.Hour), "dev-1", londonLoc))
	}
	current := successAt(time.Date(2026, 3, 3, 3, 0, 0, 0, time.UTC), "dev-1", londonLoc)

	result := d.DetectAnomalies(current, recent, nil)
	if !hasFlag(result, domain.FlagUnusualHour) {
		t.Fatalf("expected unusual hour flag, got %v", result.Flags)
	}
	if result.RiskScore != 10 {
		t.Fatalf("inferred unusual hour scores 10, got %d", result.RiskScore)
	}
}

func TestDetectAnomaliesUnusualHourNeedsHistory(t *testing.T) {
	d := NewAnomalyDetector()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	recent := []domain.LoginAttempt{
		successAt(base.Add(-24*time.Hour), "dev-1", londonLoc),
		successAt(base.Add(-48*time.Hour), "dev-1", londonLoc),
	}
	current := successAt(time.Date(2026, 3, 3, 3, 0, 0, 0, time.UTC), "dev-1", londonLoc)

	result := d.DetectAnomalies(current, recent, nil)
	if hasFlag(result, domain.FlagUnusualHour) {
		t.Fatal("too little history to infer usual hours")
	}
}

func TestDetectAnomaliesHighRiskCountry(t *testing.T) {
	d := NewAnomalyDetector()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	kpLoc := domain.Location{Country: "North Korea", CountryCode: "KP"}
	recent := []domain.LoginAttempt{
		successAt(now.Add(-24*time.Hour), "dev-1", kpLoc),
	}
	current := successAt(now, "dev-1", kpLoc)

	result := d.DetectAnomalies(current, recent, []int{9})
	if !hasFlag(result, domain.FlagHighRiskCountry) {
		t.Fatalf("expected high risk country flag, got %v", result.Flags)
	}
	if result.RiskScore != 15 {
		t.Fatalf("expected score 15, got %d", result.RiskScore)
	}
	if result.IsAnomalous {
		t.Fatal("a lone watchlist signal should not be anomalous on its own")
	}
}

func TestDetectAnomaliesScoreClampedAt100(t *testing.T) {
	d := NewAnomalyDetector()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	recent := []domain.LoginAttempt{}
	for i := 1; i <= 6; i++ {
		recent = append(recent, domain.LoginAttempt{
			UserID:    "user-1",
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
			Success:   false,
		})
	}
	recent = append(recent, successAt(now.Add(-time.Hour), "dev-1", londonLoc))
	current := successAt(now, "dev-2", domain.Location{Country: "North Korea", CountryCode: "KP", Lat: 39.0392, Lon: 125.7625})

	result := d.DetectAnomalies(current, recent, []int{3})
	if result.RiskScore != 100 {
		t.Fatalf("expected clamped score 100, got %d", result.RiskScore)
	}
	if !result.IsAnomalous {
		t.Fatal("expected anomalous login")
	}
}

func TestHaversineKnownDistances(t *testing.T) {
	km := Haversine(51.5074, -0.1278, 48.8566, 2.3522)
	if km < 330 || km > 360 {
		t.Fatalf("London to Paris should be about 343 km, got %.1f", km)
	}
	if rev := Haversine(48.8566, 2.3522, 51.5074, -0.1278); math.Abs(rev-km) > 1e-6 {
		t.Fatalf("distance should be symmetric: %.6f vs %.6f", km, rev)
	}
	if same := Haversine(51.5074, -0.1278, 51.5074, -0.1278); same != 0 {
		t.Fatalf("distance to self should be 0, got %f", same)
	}
}

func TestGenerateRiskSummary(t *testing.T) {
	d := NewAnomalyDetector()
	current := domain.LoginAttempt{
		Timestamp: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Location:  tokyoLoc,
	}
	result := domain.AnomalyResult{
		RiskScore: 75,
		Reasons:   []string{"first login from JP"},
	}
	summary := d.GenerateRiskSummary(current, result)
	if !strings.Contains(summary, "75/100") {
		t.Fatalf("expected score in summary: %q", summary)
	}
	if !strings.Contains(summary, "Tokyo") {
		t.Fatalf("expected location in summary: %q", summary)
	}
	if !strings.Contains(summary, "Additional verification") {
		t.Fatalf("expected step-up notice at high score: %q", summary)
	}
}

func hasFlag(result domain.AnomalyResult, flag domain.AnomalyFlag) bool {
	for _, f := range result.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
