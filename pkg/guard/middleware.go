package guard

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/callcocam/gatekeeper/pkg/session"
	"github.com/callcocam/gatekeeper/pkg/tenant"
)

// Machine-readable denial codes returned to API clients.
const (
	CodeUnauthenticated                 = "unauthenticated"
	CodeAccessDenied                    = "access_denied"
	CodeTenantNotFound                  = "tenant_not_found"
	CodeLandlordAccessRequired          = "landlord_access_required"
	CodeLandlordAuthRequired            = "landlord_authentication_required"
	CodeInsufficientLandlordPermissions = "insufficient_landlord_permissions"
)

// MiddlewareConfig controls where browser requests get redirected on
// denial. API requests always receive a JSON body instead.
type MiddlewareConfig struct {
	// LandlordLoginURL receives unauthenticated landlord-route requests.
	LandlordLoginURL string
	// TenantLoginURL receives unauthenticated tenant-route requests.
	TenantLoginURL string
	// FlashCookie names the cookie carrying the denial message for the
	// login page. Empty disables the flash.
	FlashCookie string
}

// DefaultMiddlewareConfig matches the routes the bundled HTTP module mounts.
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		LandlordLoginURL: "/landlord/login",
		TenantLoginURL:   "/login",
		FlashCookie:      "gatekeeper_flash",
	}
}

// RequireLandlord admits only authenticated landlord sessions whose user
// still holds landlord authority.
func (o *Orchestrator) RequireLandlord(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := session.FromContext(r.Context())
			if !ok {
				deny(w, r, http.StatusUnauthorized, CodeLandlordAuthRequired,
					"landlord authentication required", cfg.LandlordLoginURL, cfg.FlashCookie)
				return
			}
			if o.IsTenantContext(sess) {
				deny(w, r, http.StatusForbidden, CodeLandlordAccessRequired,
					"landlord access required", cfg.LandlordLoginURL, cfg.FlashCookie)
				return
			}
			if !o.landlord.Check(sess) {
				deny(w, r, http.StatusUnauthorized, CodeLandlordAuthRequired,
					"landlord authentication required", cfg.LandlordLoginURL, cfg.FlashCookie)
				return
			}
			// Authority is re-verified against the store on every request.
			if _, ok := o.landlord.User(r.Context(), sess); !ok {
				deny(w, r, http.StatusForbidden, CodeInsufficientLandlordPermissions,
					"insufficient landlord permissions", cfg.LandlordLoginURL, cfg.FlashCookie)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireTenant admits authenticated tenant sessions bound to the
// resolved tenant, plus landlord sessions actively impersonating it.
func (o *Orchestrator) RequireTenant(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t, ok := tenant.FromContext(r.Context())
			if !ok {
				deny(w, r, http.StatusNotFound, CodeTenantNotFound,
					"tenant not found", cfg.TenantLoginURL, cfg.FlashCookie)
				return
			}

			sess, ok := session.FromContext(r.Context())
			if !ok {
				deny(w, r, http.StatusUnauthorized, CodeUnauthenticated,
					"authentication required", cfg.TenantLoginURL, cfg.FlashCookie)
				return
			}

			if o.IsLandlordContext(sess) {
				if rec, impersonating := o.landlord.ImpersonationTarget(sess); impersonating && rec.TenantID == t.ID {
					next.ServeHTTP(w, r)
					return
				}
				deny(w, r, http.StatusForbidden, CodeAccessDenied,
					"access denied", cfg.TenantLoginURL, cfg.FlashCookie)
				return
			}

			if !o.tenant.Check(sess) {
				deny(w, r, http.StatusUnauthorized, CodeUnauthenticated,
					"authentication required", cfg.TenantLoginURL, cfg.FlashCookie)
				return
			}
			// The session must be bound to the tenant the URL resolved.
			snap, _ := o.tenant.core.snapshot(sess)
			if snap.TenantID == nil || *snap.TenantID != t.ID {
				deny(w, r, http.StatusForbidden, CodeAccessDenied,
					"access denied", cfg.TenantLoginURL, cfg.FlashCookie)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// wantsJSON mirrors how API clients identify themselves.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

func deny(w http.ResponseWriter, r *http.Request, status int, code, message, redirectURL, flashCookie string) {
	if wantsJSON(r) || redirectURL == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":   code,
			"message": message,
		})
		return
	}
	if flashCookie != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookie,
			Value:    code,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, redirectURL, http.StatusSeeOther)
}
