package logger

import "log/slog"

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
// If id is nil, it returns an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// TenantID records the tenant identifier under the key "tenant_id".
// If id is nil, it returns an empty Attr.
func TenantID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("tenant_id", id)
}

// GuardContext records the active guard context under the key "context".
func GuardContext(ctx string) slog.Attr {
	return slog.String("context", ctx)
}

// Action records a guard action under the key "action".
func Action(action string) slog.Attr {
	return slog.String("action", action)
}

// Email records the actor email under the key "email".
func Email(email string) slog.Attr {
	return slog.String("email", email)
}

// IP records the client address under the key "ip".
func IP(ip string) slog.Attr {
	return slog.String("ip", ip)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
