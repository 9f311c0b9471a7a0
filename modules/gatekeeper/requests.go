package gatekeeper

import (
	"net/http"
	"strings"

	"github.com/callcocam/gatekeeper/pkg/binder"
)

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type debugModeRequest struct {
	Enabled bool `json:"enabled" form:"enabled"`
}

type tenantPathRequest struct {
	TenantID string `path:"tenantID"`
}

type canRequest struct {
	Action   string `query:"action"`
	Resource string `query:"resource"`
}

// bindBody accepts either JSON or classic form logins so the same
// endpoints serve API clients and server-rendered pages.
func bindBody(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		return binder.JSON()(r, v)
	}
	return binder.Form()(r, v)
}
