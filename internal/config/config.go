// Package config resolves the process-wide PPL_* environment variables
// exactly once, per spec §4.8/§6. An unparsable value logs a warning and
// makes the whole configuration fall back to its defaults instead of
// failing the process; the other, valid values are not kept.
package config

import (
	"strconv"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/fogfactory/ppl/internal/pkglog"
)

// Schedule is the default farm dispatch mode when a stage does not declare
// its own a_priori_partitioning.
type Schedule string

const (
	ScheduleStatic  Schedule = "static"
	ScheduleDynamic Schedule = "dynamic"
)

// WaitPolicy selects whether idle threads park or busy-wait.
type WaitPolicy string

const (
	WaitActive  WaitPolicy = "active"
	WaitPassive WaitPolicy = "passive"
)

// Config is the resolved set of PPL_* knobs.
type Config struct {
	MaxCores      int    `envconfig:"MAX_CORES"`
	Pinning       bool   `envconfig:"PINNING"`
	Schedule      string `envconfig:"SCHEDULE" default:"dynamic"`
	WaitPolicy    string `envconfig:"WAIT_POLICY" default:"passive"`
	ThreadMapping string `envconfig:"THREAD_MAPPING"`
}

// ScheduleMode returns the parsed Schedule, defaulting to dynamic on an
// unrecognized value.
func (c Config) ScheduleMode() Schedule {
	switch Schedule(strings.ToLower(c.Schedule)) {
	case ScheduleStatic:
		return ScheduleStatic
	default:
		return ScheduleDynamic
	}
}

// WaitMode returns the parsed WaitPolicy, defaulting to passive on an
// unrecognized value.
func (c Config) WaitMode() WaitPolicy {
	switch WaitPolicy(strings.ToLower(c.WaitPolicy)) {
	case WaitActive:
		return WaitActive
	default:
		return WaitPassive
	}
}

// ThreadMappingSlice parses the comma-separated THREAD_MAPPING into CPU
// indices. Returns nil when unset or unparsable (caller falls back to
// identity order).
func (c Config) ThreadMappingSlice() []int {
	if c.ThreadMapping == "" {
		return nil
	}
	parts := strings.Split(c.ThreadMapping, ",")
	mapping := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			pkglog.L().Warn("config: invalid THREAD_MAPPING entry, falling back to default order", zap.Error(err))
			return nil
		}
		mapping = append(mapping, v)
	}
	return mapping
}

var (
	once     sync.Once
	resolved Config
)

// Get resolves (once) and returns the process configuration.
func Get() Config {
	once.Do(func() {
		var c Config
		if err := envconfig.Process("PPL", &c); err != nil {
			pkglog.L().Warn("config: failed to process environment, using defaults", zap.Error(err))
			c = Config{Schedule: "dynamic", WaitPolicy: "passive"}
		}
		resolved = c
	})
	return resolved
}

// resetForTest clears the memoized configuration. Test-only.
func resetForTest() {
	once = sync.Once{}
}
