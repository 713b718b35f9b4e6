package flow

import (
	"context"
	"errors"
	"math/rand"

	log "github.com/sirupsen/logrus"
	"kvflow/kvwrapper"
)

type (
	executor struct {
		workerID int
		cfg      *WorkloadConfig
		store    kvwrapper.Store
		filler   []byte
		c        *classifier
		rnd      *rand.Rand
	}
	errorOutcome int
)

const (
	transient errorOutcome = iota
	fatal
	stopping
)

// execute runs one transaction with the given sequence number. Only fatal errors are returned;
// transient errors abort the step they occurred in and are otherwise absorbed.
func (e *executor) execute(ctx context.Context, seq uint64) error {

	key := makeKey(e.cfg.KeyPrefix, e.workerID, seq, e.rnd.Intn(numBuckets))

	if _, err := e.store.Get(ctx, key); err != nil {
		switch e.handleError(ctx, opGet, key, err) {
		case fatal:
			return err
		case stopping:
			return nil
		}
	}

	if e.rnd.Float64() < e.cfg.Mix.PutChainProbability {
		for _, tag := range putChainTags {
			if err := e.store.Put(ctx, deriveKey(tag, key), e.filler, 0); err != nil {
				outcome := e.handleError(ctx, opPut, key, err)
				if outcome == fatal {
					return err
				} else if outcome == stopping {
					return nil
				}
				break
			}
		}
	}

	if e.rnd.Float64() < e.cfg.Mix.ConditionalWriteProbability {
		if err := e.store.PutIfAbsent(ctx, key, key, e.cfg.TTL); err != nil && !errors.Is(err, kvwrapper.ErrConflict) {
			switch e.handleError(ctx, opPutIfAbsent, key, err) {
			case fatal:
				return err
			case stopping:
				return nil
			}
		}

		if e.rnd.Float64() < e.cfg.Mix.FollowUpPutProbability {
			if err := e.store.Put(ctx, key, key, e.cfg.TTL); err != nil {
				if e.handleError(ctx, opPut, key, err) == fatal {
					return err
				}
			}
		}
	}

	return nil

}

// handleError counts, logs and classifies a failed store request. Failures that are a consequence
// of the run being cancelled are dropped; any other failure is handled even while stopping.
func (e *executor) handleError(ctx context.Context, op operation, key []byte, err error) errorOutcome {

	if ctx.Err() != nil && causedByCancellation(err) {
		return stopping
	}

	failedRequests.WithLabelValues(string(op)).Inc()
	lp.LogTransactionEvent(string(op), string(key), err, log.ErrorLevel)

	if e.c.classify(err) {
		return fatal
	}

	return transient

}
