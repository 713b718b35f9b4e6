package loadsupport

import (
	"bytes"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"kvflow/client"
	"kvflow/logging"
)

// FillerByte is the byte every filler payload consists of.
const FillerByte byte = 'O'

var (
	lp                = logging.GetLogProviderInstance(client.ID())
	fixedSizePayloads sync.Map
)

// RetrieveFillerPayload returns a payload of sizeBytes filler bytes. Payloads are built once per
// size and shared afterwards, so callers must not modify the returned slice.
func RetrieveFillerPayload(sizeBytes int) []byte {

	if v, ok := fixedSizePayloads.Load(sizeBytes); ok {
		return v.([]byte)
	}

	lp.LogRunnerEvent(fmt.Sprintf("performing first-time initialization of filler payload of %d bytes", sizeBytes), log.InfoLevel)
	v, _ := fixedSizePayloads.LoadOrStore(sizeBytes, bytes.Repeat([]byte{FillerByte}, sizeBytes))

	return v.([]byte)

}
