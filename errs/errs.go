// Package errs defines the error taxonomy shared by registry, pool,
// farm, and pipeline: the kinds listed in spec §7. Each kind is a sentinel
// wrapped with fmt.Errorf("%w", ...) so callers can errors.Is/As against
// it, the same pattern the teacher uses for ErrInvalidDispatcher.
package errs

import "errors"

var (
	// ErrNotEnoughCPUs: a partition request exceeds free CPUs with pinning on.
	ErrNotEnoughCPUs = errors.New("ppl: not enough cpus for requested partition")
	// ErrTypeMismatch: adjacent stages have incompatible I/O types.
	ErrTypeMismatch = errors.New("ppl: adjacent stage type mismatch")
	// ErrAlreadyStarted: Start called more than once on a pipeline.
	ErrAlreadyStarted = errors.New("ppl: pipeline already started")
	// ErrAlreadyConsumed: WaitAndCollect called more than once.
	ErrAlreadyConsumed = errors.New("ppl: pipeline result already consumed")
	// ErrChannelDisconnected: a mid-stream channel invariant was violated.
	ErrChannelDisconnected = errors.New("ppl: channel disconnected")
	// ErrConfigInvalid: an environment variable could not be parsed.
	ErrConfigInvalid = errors.New("ppl: invalid configuration value")
	// ErrNotCloneable: a stage needs R>1 replicas but has no CloneStage.
	ErrNotCloneable = errors.New("ppl: stage is not cloneable for farm replication")
	// ErrInvalidDispatcher: a stage list handed to pipeline.ValidateChain is
	// too short or has a stage of the wrong shape for its position.
	ErrInvalidDispatcher = errors.New("ppl: invalid dispatcher")
)

// TaskPanicked wraps the first panic value observed by a pool or scope,
// surfaced at the next Wait()/scope exit per spec §4.4/§7.
type TaskPanicked struct {
	Value any
}

func (e *TaskPanicked) Error() string {
	return "ppl: task panicked"
}

// Unwrap lets errors.Is/As reach through when Value is itself an error.
func (e *TaskPanicked) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
