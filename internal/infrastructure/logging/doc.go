// Package logging provides structured logging using uber/zap.
//
// Production mode writes JSON for machine parsing; development mode
// writes colored console output. Each component takes a named child so
// log lines can be filtered by origin:
//
//	logger := logging.NewDefault()
//	fsLog := logger.Named("pipefs")
//	fsLog.Info("Pipe created", zap.String("pipe", "jobs"))
//
// SetLevel adjusts the level of the whole tree at runtime.
package logging
