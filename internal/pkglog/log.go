// Package pkglog provides the single zap logger shared by every ppl
// subsystem. Components log through here instead of constructing their own
// logger so verbosity is controlled in one place.
package pkglog

import (
	"os"
	"sync"

	"go.uber.org/zap"
)

var (
	once   sync.Once
	logger *zap.Logger
)

// L returns the process-wide logger. The first call builds it: a
// development logger (caller info, debug level) when PPL_DEBUG_LOG is set
// to any non-empty value, a production logger at warn level otherwise. A
// no-op logger is used only if building the chosen logger fails.
func L() *zap.Logger {
	once.Do(func() {
		var err error
		if os.Getenv("PPL_DEBUG_LOG") != "" {
			logger, err = zap.NewDevelopment()
		} else {
			cfg := zap.NewProductionConfig()
			cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
			logger, err = cfg.Build()
		}
		if err != nil {
			logger = zap.NewNop()
		}
	})
	return logger
}
