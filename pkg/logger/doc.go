// Package logger builds *slog.Logger instances for the gateway.
//
// New takes functional options for format, level, output and static
// attributes, and wraps the handler in LogHandlerDecorator so that values
// stored in the request context (request id and similar) are added to every
// record logged with a *Context method.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "smsgate"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.WarnContext(ctx, "retrying send",
//		logger.Phone(to),
//		logger.Attempt(2, 3),
//		logger.Error(err),
//	)
//
// Attribute helpers keep key names consistent across packages. Phone masks
// all but the last four digits so subscriber numbers do not end up in logs
// in full. Error and Errors return an empty attribute for nil errors, which
// slog drops.
package logger
