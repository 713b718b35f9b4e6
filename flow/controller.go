package flow

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"kvflow/api"
	"kvflow/client"
	"kvflow/kvwrapper"
	"kvflow/logging"
	"kvflow/status"
)

type (
	runnerState string
	// Controller drives a single workload run against a store.
	Controller struct {
		cfg             *WorkloadConfig
		store           kvwrapper.Store
		g               *status.Gatherer
		r               *recorder
		stop            *atomic.Bool
		numTransactions *atomic.Int64
		reportWritten   bool
		stateList       []runnerState
	}
)

const (
	initState     runnerState = "init"
	runningState  runnerState = "running"
	stoppingState runnerState = "stopping"
	doneState     runnerState = "done"
)

const (
	statusKeyCurrentState    = "currentState"
	statusKeyNumWorkers      = "numWorkers"
	statusKeyDurationSeconds = "durationSeconds"
	statusKeyNumTransactions = "numTransactions"
	sourceFlowRunner         = "flowrunner"
)

var (
	lp                   *logging.LogProvider
	statusUpdateInterval = time.Second
)

func init() {
	lp = logging.GetLogProviderInstance(client.ID())
}

func NewController(cfg *WorkloadConfig, s kvwrapper.Store) *Controller {

	return &Controller{
		cfg:             cfg,
		store:           s,
		g:               status.NewGatherer(),
		r:               &recorder{},
		stop:            atomic.NewBool(false),
		numTransactions: atomic.NewInt64(0),
	}

}

// Run executes the workload until the configured duration has elapsed, a worker hits a fatal
// error, or ctx is cancelled. It returns the process exit code: 1 if a fatal error was
// recorded, 0 otherwise. Closing the store remains the caller's responsibility.
func (c *Controller) Run(ctx context.Context) int {

	ready := make(chan struct{})
	go c.g.Listen(ready)
	<-ready
	defer c.g.StopListen()

	api.RegisterStatefulActor(api.FlowRunners, sourceFlowRunner, c.g.AssembleStatusCopy)
	c.updateState(initState)

	if !c.cfg.Enabled {
		lp.LogRunnerEvent("flow runner not enabled -- won't run", log.InfoLevel)
		c.updateState(doneState)
		return 0
	}

	api.RaiseNotReady()
	c.g.Updates <- status.Update{Key: statusKeyNumWorkers, Value: c.cfg.NumWorkers}
	c.g.Updates <- status.Update{Key: statusKeyDurationSeconds, Value: c.cfg.DurationSeconds}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	p := &pool{
		cfg:             c.cfg,
		store:           c.store,
		c:               &classifier{c.r},
		stop:            c.stop,
		numTransactions: c.numTransactions,
		seed:            c.seed(),
	}

	lp.LogRunnerEvent(fmt.Sprintf("start to run workload, duration: %ds, threads: %d", c.cfg.DurationSeconds, c.cfg.NumWorkers), log.InfoLevel)
	start := time.Now()
	group, groupCtx := p.start(runCtx)

	c.updateState(runningState)
	api.RaiseReady()

	c.awaitEnd(groupCtx)

	// On the fatal path the report is written before the workers are drained.
	if _, fatal := c.r.peek(); fatal {
		c.writeReportOnce()
	}

	c.updateState(stoppingState)
	c.stop.Store(true)
	if _, fatal := c.r.peek(); fatal {
		cancelRun()
	}

	if err := group.Wait(); err != nil {
		lp.LogRunnerEvent(fmt.Sprintf("run aborted by fatal error: %v", err), log.ErrorLevel)
	}
	lp.LogRunnerEvent("all workers finished", log.InfoLevel)
	lp.LogTimingEvent("flow run", int(time.Since(start).Milliseconds()), log.InfoLevel)

	// A worker may have hit a fatal error after the duration elapsed but before it saw the stop signal.
	exitCode := 0
	if result, fatal := c.r.peek(); fatal {
		c.writeReportOnce()
		exitCode = result.ExitCode
	}

	c.g.Updates <- status.Update{Key: statusKeyNumTransactions, Value: c.numTransactions.Load()}
	c.updateState(doneState)

	return exitCode

}

func (c *Controller) awaitEnd(groupCtx context.Context) {

	timer := time.NewTimer(time.Duration(c.cfg.DurationSeconds) * time.Second)
	defer timer.Stop()

	ticker := time.NewTicker(statusUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timer.C:
			lp.LogRunnerEvent(fmt.Sprintf("workload duration of %d seconds elapsed", c.cfg.DurationSeconds), log.InfoLevel)
			return
		case <-groupCtx.Done():
			if _, fatal := c.r.peek(); fatal {
				lp.LogRunnerEvent("fatal error recorded, stopping run", log.ErrorLevel)
			} else {
				lp.LogRunnerEvent("run cancelled, stopping", log.WarnLevel)
			}
			return
		case <-ticker.C:
			c.g.Updates <- status.Update{Key: statusKeyNumTransactions, Value: c.numTransactions.Load()}
		}
	}

}

func (c *Controller) writeReportOnce() {

	if c.reportWritten {
		return
	}
	c.reportWritten = true

	// Write failures are logged by the writer and must not change the exit code.
	_ = writeReport(c.cfg.ReportPath, c.r)

}

func (c *Controller) seed() int64 {

	if c.cfg.RandomSeed != 0 {
		return c.cfg.RandomSeed
	}

	return time.Now().UnixNano()

}

func (c *Controller) updateState(s runnerState) {

	c.stateList = append(c.stateList, s)
	c.g.Updates <- status.Update{Key: statusKeyCurrentState, Value: string(s)}

}
