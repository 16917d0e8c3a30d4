package retry

import (
	"sync"
)

var (
	globalExec *Executor
	globalOnce sync.Once
	globalMu   sync.Mutex
)

// DefaultExecutor returns the shared, lazy-initialized default executor.
// It uses NewDefaultExecutor() if SetGlobal has not been called.
func DefaultExecutor() *Executor {
	globalOnce.Do(func() {
		globalMu.Lock()
		defer globalMu.Unlock()
		if globalExec == nil {
			globalExec = NewDefaultExecutor()
		}
	})
	return globalExec
}

// SetGlobal configures the default executor.
// It must be called before DefaultExecutor() is used (e.g. at startup).
// If called after initialization, it logs a warning and does nothing.
func SetGlobal(exec *Executor) {
	if exec == nil {
		return
	}

	globalMu.Lock()
	if globalExec != nil {
		current := globalExec
		globalMu.Unlock()
		current.logger.Warn("SetGlobal called after global executor already initialized; ignoring")
		return
	}
	globalExec = exec
	globalMu.Unlock()

	globalOnce.Do(func() {})
}
