// Package logger provides structured logging for the post scraper.
//
// It wraps zerolog behind a small Logger interface so components can take a
// logger as a dependency and tests can swap in a TestLogger or NewNopLogger.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//
//	logger.Info("Server started")
//	logger.WithField("worker", 2).Info("Worker finished")
//
// Components usually derive a child logger once:
//
//	log := logger.GetLogger().WithField("component", "browser_pool")
//	log.InfoWithFields("Session launched", map[string]interface{}{
//	    "session_id": id,
//	    "live":       stats.Live,
//	})
//
// Console output is colored when no log file is configured. When a file is
// configured, JSON lines go to the file and a plain console copy to stderr.
package logger
