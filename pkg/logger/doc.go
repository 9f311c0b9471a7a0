// Package logger builds slog loggers for the gatekeeper components and
// provides the attribute helpers used across the guard and tenant layers
// so that record keys stay uniform (user_id, tenant_id, context, action).
//
// Context extractors annotate every record with request-scoped values:
//
//	log := logger.New(
//		logger.WithFormat(logger.FormatJSON),
//		logger.WithContextExtractors(tenant.LoggerExtractor()),
//	)
package logger
