// Package topology enumerates CPUs and pins OS threads, per spec §4.2.
// Affinity pinning is only meaningful on Linux; other platforms degrade to
// a no-op, mirroring how the original pspp runtime delegated pinning to a
// platform-specific backend (core_affinity) instead of failing elsewhere.
package topology

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/fogfactory/ppl/internal/config"
	"github.com/fogfactory/ppl/internal/pkglog"
)

// AvailableCPUs returns the ordered list of usable CPU indices: the
// THREAD_MAPPING override when set and fully parseable, else the
// OS-enumerated order, capped by MAX_CORES when pinning is on.
func AvailableCPUs() []int {
	cfg := config.Get()

	mapping := cfg.ThreadMappingSlice()
	if mapping == nil {
		n := runtime.NumCPU()
		mapping = make([]int, n)
		for i := range mapping {
			mapping[i] = i
		}
	}

	if cfg.Pinning && cfg.MaxCores > 0 && cfg.MaxCores < len(mapping) {
		mapping = mapping[:cfg.MaxCores]
	}
	return mapping
}

// PinCurrent locks the calling goroutine to its OS thread with
// runtime.LockOSThread and binds that thread to cpu (pinning only makes
// sense for a goroutine that owns its OS thread for its whole life, which
// is exactly the contract node and worker goroutines uphold).
func PinCurrent(cpu int) error {
	if err := pinCurrent(cpu); err != nil {
		pkglog.L().Error("topology: pin_current failed", zap.Int("cpu", cpu), zap.Error(err))
		return err
	}
	pkglog.L().Debug("topology: thread pinned", zap.Int("cpu", cpu))
	return nil
}
