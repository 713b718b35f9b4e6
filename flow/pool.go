package flow

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"kvflow/kvwrapper"
	"kvflow/loadsupport"
)

type pool struct {
	cfg             *WorkloadConfig
	store           kvwrapper.Store
	c               *classifier
	stop            *atomic.Bool
	numTransactions *atomic.Int64
	seed            int64
}

// start launches one goroutine per configured worker. The returned context is cancelled as soon
// as a worker returns a fatal error or the parent context is done; Wait on the returned group
// acts as completion barrier.
func (p *pool) start(ctx context.Context) (*errgroup.Group, context.Context) {

	g, groupCtx := errgroup.WithContext(ctx)

	for i := 0; i < p.cfg.NumWorkers; i++ {
		workerID := i
		g.Go(func() error {
			return p.work(groupCtx, workerID)
		})
	}

	return g, groupCtx

}

func (p *pool) newExecutor(workerID int) *executor {

	return &executor{
		workerID: workerID,
		cfg:      p.cfg,
		store:    p.store,
		filler:   loadsupport.RetrieveFillerPayload(p.cfg.FillerSizeBytes),
		c:        p.c,
		rnd:      rand.New(rand.NewSource(p.seed + int64(workerID))),
	}

}

func (p *pool) work(ctx context.Context, workerID int) error {

	e := p.newExecutor(workerID)

	for seq := uint64(0); !p.stop.Load() && ctx.Err() == nil; seq++ {
		start := time.Now()
		if err := e.execute(ctx, seq); err != nil {
			lp.LogRunnerEvent(fmt.Sprintf("worker %d encountered fatal error in transaction %d, aborting", workerID, seq), log.ErrorLevel)
			return err
		}
		transactionDuration.Observe(time.Since(start).Seconds())
		p.numTransactions.Inc()
	}

	lp.LogRunnerEvent(fmt.Sprintf("worker %d finished", workerID), log.InfoLevel)
	return nil

}
