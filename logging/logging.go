package logging

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ApiEvent           = "api event"
	RunnerEvent        = "runner event"
	TransactionEvent   = "transaction event"
	ReportEvent        = "report event"
	TimingEvent        = "timing event"
	IoEvent            = "io event"
	StoreEvent         = "store event"
	ConfigurationEvent = "configuration event"
)

type LogProvider struct {
	ClientID uuid.UUID
}

var (
	lp     *LogProvider
	lpOnce sync.Once
)

func init() {

	log.SetFormatter(&log.JSONFormatter{})

	definedLogLevel := os.Getenv("LOG_LEVEL")

	var logLevel log.Level
	var out io.Writer

	switch strings.ToLower(definedLogLevel) {
	case "trace":
		logLevel = log.TraceLevel
		out = os.Stdout
	case "debug":
		logLevel = log.DebugLevel
		out = os.Stdout
	case "info":
		logLevel = log.InfoLevel
		out = os.Stdout
	case "warn":
		logLevel = log.WarnLevel
		out = os.Stderr
	case "error":
		logLevel = log.ErrorLevel
		out = os.Stderr
	default:
		logLevel = log.InfoLevel
		out = os.Stdout
	}

	log.SetLevel(logLevel)
	log.SetOutput(out)
	log.SetReportCaller(false)

	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		UseLogFile(logFile)
	}

}

// GetLogProviderInstance returns the process-wide log provider, creating it on first use.
func GetLogProviderInstance(clientID uuid.UUID) *LogProvider {

	lpOnce.Do(func() {
		lp = &LogProvider{ClientID: clientID}
	})

	return lp

}

// UseLogFile redirects all log output to the given file. The file is rotated once it grows
// beyond 256 MB, keeping the last five rotated files.
func UseLogFile(path string) {

	log.SetOutput(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    256,
		MaxBackups: 5,
	})

}

func (lp *LogProvider) LogIoEvent(msg string, level log.Level) {

	fields := log.Fields{
		"kind": IoEvent,
	}

	lp.doLog(msg, fields, level)

}

func (lp *LogProvider) LogApiEvent(msg string, level log.Level) {

	fields := log.Fields{
		"kind": ApiEvent,
	}

	lp.doLog(msg, fields, level)

}

func (lp *LogProvider) LogTimingEvent(operation string, tookMs int, level log.Level) {

	fields := log.Fields{
		"kind":      TimingEvent,
		"operation": operation,
		"tookMs":    tookMs,
	}

	lp.doLog(fmt.Sprintf("'%s' took %d ms", operation, tookMs), fields, level)

}

func (lp *LogProvider) LogRunnerEvent(msg string, level log.Level) {

	fields := log.Fields{
		"kind": RunnerEvent,
	}

	lp.doLog(msg, fields, level)

}

// LogTransactionEvent reports a failed store operation inside a transaction.
func (lp *LogProvider) LogTransactionEvent(operation string, key string, err error, level log.Level) {

	fields := log.Fields{
		"kind":      TransactionEvent,
		"operation": operation,
		"key":       key,
	}

	lp.doLog(fmt.Sprintf("encounter error while %s [key=%s] [err=%v]", operation, key, err), fields, level)

}

func (lp *LogProvider) LogReportEvent(msg string, level log.Level) {

	fields := log.Fields{
		"kind": ReportEvent,
	}

	lp.doLog(msg, fields, level)

}

func (lp *LogProvider) LogStoreEvent(msg string, level log.Level) {

	fields := log.Fields{
		"kind": StoreEvent,
	}

	lp.doLog(msg, fields, level)

}

func (lp *LogProvider) LogErrUponConfigRetrieval(keyPath string, err error, level log.Level) {

	lp.LogConfigEvent(keyPath, "config file", fmt.Sprintf("encountered error upon attempt to extract config value: %v", err), level)

}

func (lp *LogProvider) LogConfigEvent(configValue string, source string, msg string, level log.Level) {

	fields := log.Fields{
		"kind":   ConfigurationEvent,
		"value":  configValue,
		"source": source,
	}

	lp.doLog(msg, fields, level)

}

func (lp *LogProvider) doLog(msg string, fields log.Fields, level log.Level) {

	fields["caller"] = getCaller()
	fields["client"] = lp.ClientID

	switch level {
	case log.FatalLevel:
		log.WithFields(fields).Fatal(msg)
	case log.ErrorLevel:
		log.WithFields(fields).Error(msg)
	case log.WarnLevel:
		log.WithFields(fields).Warn(msg)
	case log.InfoLevel:
		log.WithFields(fields).Info(msg)
	case log.DebugLevel:
		log.WithFields(fields).Debug(msg)
	default:
		log.WithFields(fields).Trace(msg)
	}

}

func getCaller() string {

	// Skipping three stacks will bring us to the method or function that originally invoked the logging method
	pc, _, _, ok := runtime.Caller(3)

	if !ok {
		return "unknown"
	}

	file, line := runtime.FuncForPC(pc).FileLine(pc)
	return fmt.Sprintf("%s:%d", file, line)

}
