package flow

import (
	"context"
	"errors"
	"strings"

	jujuerrors "github.com/juju/errors"
)

var fatalErrorMarkers = []string{"key_not_in_region", "key corrupted"}

type classifier struct {
	r *recorder
}

func isFatal(err error) bool {

	if err == nil {
		return false
	}

	msg := err.Error()
	for _, marker := range fatalErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false

}

// causedByCancellation reports whether err stems from a cancelled or expired context, looking
// through annotations added by the store backends.
func causedByCancellation(err error) bool {

	for _, e := range []error{err, jujuerrors.Cause(err)} {
		if errors.Is(e, context.Canceled) || errors.Is(e, context.DeadlineExceeded) {
			return true
		}
	}

	return false

}

// classify reports whether err is fatal, recording it as the run's result if so.
func (c *classifier) classify(err error) bool {

	if !isFatal(err) {
		return false
	}

	c.r.recordIfAbsent(Result{ExitCode: 1, Message: err.Error()})
	return true

}
