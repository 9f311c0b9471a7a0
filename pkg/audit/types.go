package audit

import (
	"fmt"
	"time"
)

// Result represents the outcome of an audited action.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Security-relevant guard actions. The trail these produce is a contract,
// not optional diagnostics.
const (
	ActionLoginAttempt       = "auth.login_attempt"
	ActionLogin              = "auth.login"
	ActionLogout             = "auth.logout"
	ActionLogoutAll          = "auth.logout_all"
	ActionContextSwitch      = "auth.context_switch"
	ActionTenantSwitch       = "auth.tenant_switch"
	ActionImpersonationStart = "auth.impersonation_start"
	ActionImpersonationStop  = "auth.impersonation_stop"
)

// Event is a single audit trail entry.
type Event struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Result     Result         `json:"result"`
	ActorID    string         `json:"actor_id,omitempty"`
	ActorEmail string         `json:"actor_email,omitempty"`
	TenantID   string         `json:"tenant_id,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
	IP         string         `json:"ip,omitempty"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Validate checks that the event carries the required fields.
func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	return nil
}

// EventOption applies configuration to an Event during creation.
type EventOption func(*Event)

// WithActor records the acting user.
func WithActor(id, email string) EventOption {
	return func(e *Event) {
		e.ActorID = id
		e.ActorEmail = email
	}
}

// WithTenant records the target tenant.
func WithTenant(id string) EventOption {
	return func(e *Event) {
		e.TenantID = id
	}
}

// WithSession records the session the action ran under.
func WithSession(id string) EventOption {
	return func(e *Event) {
		e.SessionID = id
	}
}

// WithMetadata attaches an additional key/value pair.
func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}
