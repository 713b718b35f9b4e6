package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// StdoutReportPath makes the report go to standard output instead of a file.
const StdoutReportPath = "-"

var errNoResult = errors.New("no result recorded, refusing to write report")

var stdout io.Writer = os.Stdout

// writeReport serializes the recorded result to path, replacing any previous file.
func writeReport(path string, r *recorder) error {

	result, ok := r.peek()
	if !ok {
		lp.LogReportEvent(errNoResult.Error(), log.ErrorLevel)
		return errNoResult
	}

	data, err := json.Marshal(result)
	if err != nil {
		lp.LogReportEvent(fmt.Sprintf("unable to serialize result: %v", err), log.ErrorLevel)
		return err
	}

	if path == StdoutReportPath {
		_, err = fmt.Fprintln(stdout, string(data))
	} else {
		err = os.WriteFile(path, data, 0644)
	}

	if err != nil {
		lp.LogReportEvent(fmt.Sprintf("failed to write report file '%s': %v", path, err), log.ErrorLevel)
		return err
	}

	lp.LogReportEvent(fmt.Sprintf("report written to '%s'", path), log.InfoLevel)
	return nil

}
