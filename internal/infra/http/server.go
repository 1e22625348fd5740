package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"sentinel/internal/config"
	"sentinel/internal/domain"
	"sentinel/internal/infra/db"
	"sentinel/internal/infra/geoip"
	"sentinel/internal/infra/notify"
	"sentinel/internal/infra/policyopa"
	"sentinel/internal/infra/ratelimit"
	"sentinel/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	sanitizer *usecase.Sanitizer
	redactor  *usecase.Redactor
	approvals *usecase.ApprovalService
	quota     *usecase.QuotaService
	guard     *usecase.LoginGuard
	audit     *usecase.AuditEmitter
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r}
	s.initDeps()
	s.routes()
	return s
}

// ServerDeps allows tests and callers to inject fakes for every collaborator.
type ServerDeps struct {
	Sanitizer *usecase.Sanitizer
	Redactor  *usecase.Redactor
	Approvals *usecase.ApprovalService
	Quota     *usecase.QuotaService
	Guard     *usecase.LoginGuard
	Audit     *usecase.AuditEmitter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:       cfg,
		r:         r,
		sanitizer: deps.Sanitizer,
		redactor:  deps.Redactor,
		approvals: deps.Approvals,
		quota:     deps.Quota,
		guard:     deps.Guard,
		audit:     deps.Audit,
	}
	if s.sanitizer == nil {
		s.sanitizer = usecase.NewSanitizer()
	}
	if s.redactor == nil {
		s.redactor = usecase.NewRedactor()
	}
	s.routes()
	return s
}

func (s *Server) initDeps() {
	var gdb = s.store.DB

	auditRepo := db.NewAuditLogRepository(gdb)
	usageRepo := db.NewUsageRepository(gdb)
	attemptRepo := db.NewLoginAttemptRepository(gdb)
	subsRepo := db.NewSubscriptionRepository(gdb)

	var limiter domain.RateLimiter
	if s.cfg.RedisAddr != "" {
		redisLimiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisLimiterConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		})
		if err != nil {
			log.Printf("redis limiter init failed, falling back to memory limiter: %v", err)
		} else {
			limiter = redisLimiter
		}
	}
	if limiter == nil {
		// Single-process fallback; not valid across multiple instances.
		log.Printf("REDIS_ADDR not set; using in-memory rate limiter (testing only).")
		limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{})
	}

	var policy domain.GovernancePolicy
	if s.cfg.GovernanceBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), s.cfg.GovernanceBundlePath, s.cfg.GovernanceBundleID)
		if err != nil {
			log.Printf("governance bundle load failed, using static defaults: %v", err)
		} else {
			policy = engine
		}
	}
	if policy == nil {
		policy = policyopa.NewStaticPolicy()
	}

	s.sanitizer = usecase.NewSanitizer()
	s.redactor = usecase.NewRedactor()
	s.audit = usecase.NewAuditEmitter(auditRepo, nil)
	s.approvals = usecase.NewApprovalService(auditRepo, policy, nil)
	s.quota = &usecase.QuotaService{
		Usage:            usageRepo,
		Subscriptions:    subsRepo,
		Limiter:          limiter,
		Audit:            s.audit,
		Policy:           policy,
		ConcurrentLimit:  s.cfg.ConcurrentLimit,
		ConcurrentWindow: s.cfg.ConcurrentWindow(),
	}
	s.guard = &usecase.LoginGuard{
		Geo:           geoip.NewClient(s.cfg.GeoIPBaseURL, s.cfg.GeoIPTimeout()),
		Attempts:      attemptRepo,
		Detector:      usecase.NewAnomalyDetector(),
		Audit:         s.audit,
		Alerts:        notify.NewLogDispatcher(s.cfg.AlertFromEmail),
		Limiter:       limiter,
		AttemptLimit:  s.cfg.LoginAttemptLimit,
		AttemptWindow: s.cfg.LoginAttemptWindow(),
	}
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	v1 := s.r.Group("/v1")
	v1.Use(s.concurrencyGuard())
	{
		v1.POST("/sanitize", s.handleSanitize)
		v1.POST("/sandbox", s.handleSandbox)
		v1.POST("/redact", s.handleRedact)

		v1.POST("/approvals", s.handleCreateApproval)
		v1.POST("/approvals/:approval_id/approve", s.handleApprove)
		v1.GET("/approvals/pending", s.handleListPending)

		v1.POST("/ratelimit/check", s.handleQuotaCheck)
		v1.POST("/logins/evaluate", s.handleEvaluateLogin)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Run() error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("sentineld listening on %s", s.cfg.HTTPAddr)
	return srv.ListenAndServe()
}

func (s *Server) Handler() http.Handler {
	return s.r
}
