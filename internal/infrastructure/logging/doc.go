// Package logging provides structured logging using uber/zap.
//
// Production mode emits JSON; development mode emits colored console
// output. Components receive a named child logger so pipeline phases
// can be filtered in aggregated logs.
//
// Example:
//
//	logger := logging.NewDefault().Named("fetch")
//	logger.Info("page fetched", zap.String("url", u))
package logging
