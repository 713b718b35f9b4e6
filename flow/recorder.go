package flow

import (
	"sync"
)

// Result describes the fatal failure that ended a run.
type Result struct {
	ExitCode int    `json:"exitCode"`
	Message  string `json:"message"`
}

type recorder struct {
	m      sync.Mutex
	result *Result
}

// recordIfAbsent keeps the first result handed in; later calls are no-ops. It reports whether
// the given result was the one retained.
func (r *recorder) recordIfAbsent(result Result) bool {

	r.m.Lock()
	defer r.m.Unlock()

	if r.result != nil {
		return false
	}

	r.result = &result
	return true

}

func (r *recorder) peek() (Result, bool) {

	r.m.Lock()
	defer r.m.Unlock()

	if r.result == nil {
		return Result{}, false
	}

	return *r.result, true

}
