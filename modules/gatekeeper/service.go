package gatekeeper

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/callcocam/gatekeeper/pkg/binder"
	"github.com/callcocam/gatekeeper/pkg/clientip"
	"github.com/callcocam/gatekeeper/pkg/guard"
	"github.com/callcocam/gatekeeper/pkg/logger"
	"github.com/callcocam/gatekeeper/pkg/session"
	"github.com/callcocam/gatekeeper/pkg/tenant"
	"github.com/callcocam/gatekeeper/pkg/throttle"
	"github.com/callcocam/gatekeeper/pkg/validator"
)

// Service exposes the dual-context authentication surface over HTTP.
// It expects the session middleware to run before any of its routes.
type Service struct {
	cfg      Config
	auth     *guard.Orchestrator
	sessions *session.Manager
	limiter  *throttle.Limiter
	log      *slog.Logger
}

type ServiceOption func(*Service)

func WithServiceLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithLoginThrottle bounds failed login attempts per identifier and
// client IP. Without it logins are unthrottled.
func WithLoginThrottle(limiter *throttle.Limiter) ServiceOption {
	return func(s *Service) {
		s.limiter = limiter
	}
}

func NewService(cfg Config, auth *guard.Orchestrator, sessions *session.Manager, opts ...ServiceOption) *Service {
	if auth == nil {
		panic("gatekeeper: nil orchestrator")
	}
	if sessions == nil {
		panic("gatekeeper: nil session manager")
	}
	s := &Service{
		cfg:      cfg,
		auth:     auth,
		sessions: sessions,
		log:      logger.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Route("/landlord", func(lr chi.Router) {
		lr.Post("/login", s.landlordLogin)

		lr.Group(func(pr chi.Router) {
			pr.Use(s.auth.RequireLandlord(s.cfg.MiddlewareConfig()))
			pr.Post("/logout", s.landlordLogout)
			pr.Get("/tenants", s.listAccessibleTenants)
			pr.Post("/tenants/{tenantID}/impersonate", s.impersonateTenant)
			pr.Delete("/impersonate", s.stopImpersonation)
			pr.Put("/debug", s.setDebugMode)
			pr.Get("/stats", s.landlordStats)
		})
	})

	r.Post("/login", s.tenantLogin)
	r.Post("/logout", s.tenantLogout)
	r.Post("/tenants/{tenantID}/switch", s.switchTenant)
	r.Get("/stats", s.tenantStats)

	r.Post("/context/landlord", s.switchToLandlord)
	r.Post("/context/tenants/{tenantID}", s.switchToTenant)
	r.Post("/logout-all", s.logoutAll)
	r.Get("/state", s.state)
	r.Get("/can", s.can)

	return r
}

func (s *Service) landlordLogin(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req loginRequest
	if err := bindBody(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !s.validLogin(w, req) {
		return
	}

	if !s.allowAttempt(w, r, req.Email) {
		return
	}

	creds := guard.Credentials{"email": req.Email, guard.PasswordKey: req.Password}
	if !s.auth.Landlord().Attempt(r.Context(), sess, creds) {
		s.respondError(w, http.StatusUnauthorized, "invalid_credentials", "authentication failed")
		return
	}

	s.clearAttempts(r, req.Email)
	s.rotate(w, r, sess)
	s.respondJSON(w, http.StatusOK, s.auth.State(r.Context(), sess))
}

func (s *Service) landlordLogout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.auth.Landlord().Logout(r.Context(), sess)
	s.respondJSON(w, http.StatusOK, s.auth.State(r.Context(), sess))
}

func (s *Service) listAccessibleTenants(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	accessible := s.auth.Landlord().GetAccessibleTenants(r.Context(), sess)
	summaries := make([]tenant.Summary, 0, len(accessible))
	for _, t := range accessible {
		summaries = append(summaries, t.Summary())
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"tenants": summaries})
}

func (s *Service) impersonateTenant(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	tenantID, ok := s.tenantID(w, r)
	if !ok {
		return
	}

	if !s.auth.ImpersonateTenant(r.Context(), sess, tenantID) {
		s.respondError(w, http.StatusForbidden, "impersonation_denied", "tenant is not accessible or not active")
		return
	}
	s.respondJSON(w, http.StatusOK, s.auth.State(r.Context(), sess))
}

func (s *Service) stopImpersonation(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if !s.auth.StopTenantImpersonation(r.Context(), sess) {
		s.respondError(w, http.StatusConflict, "not_impersonating", "no active impersonation")
		return
	}
	s.respondJSON(w, http.StatusOK, s.auth.State(r.Context(), sess))
}

func (s *Service) setDebugMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req debugModeRequest
	if err := bindBody(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if !s.auth.Landlord().SetDebugMode(r.Context(), sess, req.Enabled) {
		s.respondError(w, http.StatusForbidden, "super_admin_required", "debug mode is restricted to super admins")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"debug_mode": req.Enabled})
}

func (s *Service) landlordStats(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	stats, ok := s.auth.Landlord().Stats(r.Context(), sess)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, guard.CodeUnauthenticated, "landlord authentication required")
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Service) tenantLogin(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	if s.auth.Tenant().CurrentTenant(r.Context(), sess) == nil {
		s.respondError(w, http.StatusNotFound, guard.CodeTenantNotFound, "no tenant resolved for this request")
		return
	}

	var req loginRequest
	if err := bindBody(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !s.validLogin(w, req) {
		return
	}

	if !s.allowAttempt(w, r, req.Email) {
		return
	}

	creds := guard.Credentials{"email": req.Email, guard.PasswordKey: req.Password}
	if !s.auth.Tenant().Attempt(r.Context(), sess, creds) {
		s.respondError(w, http.StatusUnauthorized, "invalid_credentials", "authentication failed")
		return
	}

	s.clearAttempts(r, req.Email)
	s.rotate(w, r, sess)
	s.respondJSON(w, http.StatusOK, s.auth.State(r.Context(), sess))
}

func (s *Service) tenantLogout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.auth.Tenant().Logout(r.Context(), sess)
	s.respondJSON(w, http.StatusOK, s.auth.State(r.Context(), sess))
}

func (s *Service) switchTenant(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	tenantID, ok := s.tenantID(w, r)
	if !ok {
		return
	}

	if !s.auth.Tenant().SwitchTenant(r.Context(), sess, tenantID) {
		s.respondError(w, http.StatusForbidden, "tenant_switch_denied", "not a member of the target tenant or tenant inactive")
		return
	}
	s.respondJSON(w, http.StatusOK, s.auth.State(r.Context(), sess))
}

func (s *Service) tenantStats(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	stats, ok := s.auth.Tenant().Stats(r.Context(), sess)
	if !ok {
		s.respondError(w, http.StatusUnauthorized, guard.CodeUnauthenticated, "tenant authentication required")
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Service) switchToLandlord(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if !s.auth.SwitchToLandlord(r.Context(), sess) {
		s.respondError(w, http.StatusForbidden, guard.CodeLandlordAccessRequired, "landlord authority required")
		return
	}
	s.rotate(w, r, sess)
	s.respondJSON(w, http.StatusOK, s.auth.State(r.Context(), sess))
}

func (s *Service) switchToTenant(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	tenantID, ok := s.tenantID(w, r)
	if !ok {
		return
	}

	if !s.auth.SwitchToTenant(r.Context(), sess, tenantID) {
		s.respondError(w, http.StatusForbidden, guard.CodeAccessDenied, "tenant is not accessible from this session")
		return
	}
	s.rotate(w, r, sess)
	s.respondJSON(w, http.StatusOK, s.auth.State(r.Context(), sess))
}

func (s *Service) logoutAll(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.auth.LogoutAll(r.Context(), sess)
	if err := s.sessions.Destroy(r.Context(), w, r); err != nil {
		s.log.ErrorContext(r.Context(), "failed to destroy session", logger.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) state(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, s.auth.State(r.Context(), sess))
}

func (s *Service) can(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req canRequest
	if err := binder.Query()(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Action == "" || req.Resource == "" {
		s.respondError(w, http.StatusBadRequest, "invalid_request", "action and resource are required")
		return
	}

	allowed := s.auth.Can(r.Context(), sess, req.Action, req.Resource)
	s.respondJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}

func (s *Service) validLogin(w http.ResponseWriter, req loginRequest) bool {
	err := validator.Apply(
		validator.Required("email", req.Email),
		validator.ValidEmail("email", req.Email),
		validator.Required("password", req.Password),
	)
	if err == nil {
		return true
	}
	s.respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":   "validation_failed",
		"message": err.Error(),
		"fields":  validator.Extract(err),
	})
	return false
}

// allowAttempt consumes one attempt from the login budget. A store
// failure is logged and the attempt admitted; throttling must not take
// logins down with it.
func (s *Service) allowAttempt(w http.ResponseWriter, r *http.Request, identifier string) bool {
	if s.limiter == nil {
		return true
	}
	key := throttle.LoginKey(identifier, clientip.GetIPFromContext(r.Context()))
	res, err := s.limiter.Allow(r.Context(), key)
	if err != nil {
		s.log.ErrorContext(r.Context(), "login throttle unavailable", logger.Error(err))
		return true
	}
	if !res.Allowed() {
		if retry := int(res.RetryAfter().Seconds()); retry > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
		}
		s.respondError(w, http.StatusTooManyRequests, "too_many_attempts", "retry later")
		return false
	}
	return true
}

func (s *Service) clearAttempts(r *http.Request, identifier string) {
	if s.limiter == nil {
		return
	}
	key := throttle.LoginKey(identifier, clientip.GetIPFromContext(r.Context()))
	if err := s.limiter.Reset(r.Context(), key); err != nil {
		s.log.ErrorContext(r.Context(), "failed to clear login throttle", logger.Error(err))
	}
}

func (s *Service) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "session_unavailable", "session middleware is not mounted")
		return nil, false
	}
	return sess, true
}

func (s *Service) tenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req tenantPathRequest
	if err := binder.Path(chi.URLParam)(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_tenant_id", err.Error())
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.TenantID)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid_tenant_id", "tenant id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// rotate renews the session token after privilege changes. A failed
// rotation keeps the old token; the login itself already succeeded.
func (s *Service) rotate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := s.sessions.Rotate(r.Context(), w, sess); err != nil {
		s.log.ErrorContext(r.Context(), "session rotation failed", logger.Error(err))
	}
}

func (s *Service) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", logger.Error(err))
	}
}

func (s *Service) respondError(w http.ResponseWriter, status int, code, msg string) {
	s.respondJSON(w, status, map[string]string{"error": code, "message": msg})
}
