package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"sentinel/internal/domain"
)

// LoginGuard composes the per-authentication pipeline: throttle, geolocate,
// score, record, alert. Everything gating authentication fails CLOSED on
// store errors; geolocation and alert dispatch are best-effort and never
// fail the primary path.
type LoginGuard struct {
	Geo      Geolocator
	Attempts LoginAttemptRepository
	Detector *AnomalyDetector
	Audit    *AuditEmitter
	Alerts   AlertDispatcher
	Limiter  domain.RateLimiter

	AttemptLimit  int
	AttemptWindow time.Duration

	Clock Clock
}

type LoginEvaluation struct {
	Anomaly       domain.AnomalyResult
	Location      domain.Location
	RequireStepUp bool
	AlertSent     bool
}

func (g *LoginGuard) EvaluateLogin(ctx context.Context, userID, ip, userAgent, deviceFingerprint string, success bool) (LoginEvaluation, error) {
	if userID == "" {
		return LoginEvaluation{}, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}

	if g.Limiter != nil && g.AttemptLimit > 0 {
		decision, err := g.Limiter.Allow(ctx, "rl:login:"+userID+":"+ip, g.AttemptLimit, g.attemptWindow())
		if err != nil {
			// Authentication gating fails closed.
			return LoginEvaluation{}, fmt.Errorf("%w: login throttle unavailable", domain.ErrStoreUnavailable)
		}
		if !decision.Allowed {
			return LoginEvaluation{}, fmt.Errorf("%w: too many login attempts", domain.ErrRateLimited)
		}
	}

	location := domain.Location{Unknown: true}
	if g.Geo != nil {
		loc, err := g.Geo.Locate(ctx, ip)
		if err != nil {
			log.Printf("login guard: geolocation failed for %s: %v", ip, err)
		}
		location = loc
	}

	history, err := g.Attempts.ListRecent(ctx, userID, 50)
	if err != nil {
		return LoginEvaluation{}, fmt.Errorf("load login history: %w", err)
	}

	current := domain.LoginAttempt{
		UserID:            userID,
		Timestamp:         g.now(),
		IPAddress:         ip,
		UserAgent:         userAgent,
		Location:          location,
		DeviceFingerprint: deviceFingerprint,
		Success:           success,
	}
	anomaly := g.Detector.DetectAnomalies(current, history, nil)

	if err := g.Attempts.Record(ctx, current); err != nil {
		return LoginEvaluation{}, fmt.Errorf("record login attempt: %w", err)
	}

	if anomaly.IsAnomalous && g.Audit != nil {
		if err := g.Audit.EmitLoginAnomaly(ctx, userID, ip, userAgent, anomaly); err != nil {
			return LoginEvaluation{}, fmt.Errorf("audit login anomaly: %w", err)
		}
	}

	eval := LoginEvaluation{
		Anomaly:       anomaly,
		Location:      location,
		RequireStepUp: anomaly.RiskScore >= domain.StepUpThreshold,
	}
	if anomaly.RiskScore >= domain.NotifyThreshold && g.Alerts != nil {
		summary := g.Detector.GenerateRiskSummary(current, anomaly)
		if err := g.Alerts.SendSecurityAlert(ctx, userID, "Unusual sign-in detected", summary); err != nil {
			log.Printf("login guard: alert dispatch failed for %s: %v", userID, err)
		} else {
			eval.AlertSent = true
		}
	}
	return eval, nil
}

func (g *LoginGuard) attemptWindow() time.Duration {
	if g.AttemptWindow <= 0 {
		return time.Minute
	}
	return g.AttemptWindow
}

func (g *LoginGuard) now() time.Time {
	if g.Clock != nil {
		return g.Clock()
	}
	return time.Now().UTC()
}
