/*
Package log provides structured logging for bluegreen using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper functions
for common logging patterns. Rollout progress is the primary consumer: every
state transition, health-probe batch, traffic switch, rollback, and cleanup is
emitted through a child logger carrying the service and attempt identity.

Initialize once at process start:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

then derive child loggers near the work:

	logger := log.WithComponent("rollout")
	logger.Info().Str("to_color", "green").Msg("switching traffic")
*/
package log
