package flow

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	jujuerrors "github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"kvflow/kvwrapper"
)

func failedRequestCount(op operation) float64 {

	return testutil.ToFloat64(failedRequests.WithLabelValues(string(op)))

}

func TestExecutor_ExecuteOperationMix(t *testing.T) {

	t.Log("given an executor with default operation mix and a fixed random seed")
	{
		t.Log("\twhen many transactions are executed against a store that always succeeds")
		{
			s := &testStore{recordCalls: true}
			e, r := newTestExecutor(newTestWorkloadConfig(), s)

			numTransactions := 20_000
			numPutChains, numPutIfAbsent, numFollowUpPuts := 0, 0, 0
			for i := 0; i < numTransactions; i++ {
				s.calls = nil
				if err := e.execute(context.TODO(), uint64(i)); err != nil {
					t.Fatal("\t\tno error must be returned", ballotX, err)
				}
				for _, c := range s.calls {
					switch {
					case c.op == opPut && bytes.HasPrefix(c.key, putChainTags[0]):
						numPutChains++
					case c.op == opPutIfAbsent:
						numPutIfAbsent++
					case c.op == opPut && bytes.Equal(c.key, c.value):
						numFollowUpPuts++
					}
				}
			}

			msg := "\t\tevery transaction must have issued exactly one get"
			if s.numGets == numTransactions {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, s.numGets)
			}

			msg = "\t\tput chain must have been taken with probability of about 0.5"
			if p := float64(numPutChains) / float64(numTransactions); math.Abs(p-0.5) < 0.02 {
				t.Log(msg, checkMark, p)
			} else {
				t.Fatal(msg, ballotX, p)
			}

			msg = "\t\tconditional write must have been taken with probability of about 1/6"
			if p := float64(numPutIfAbsent) / float64(numTransactions); math.Abs(p-1.0/6) < 0.02 {
				t.Log(msg, checkMark, p)
			} else {
				t.Fatal(msg, ballotX, p)
			}

			msg = "\t\tfollow-up put must have been taken in about half of the conditional writes"
			if p := float64(numFollowUpPuts) / float64(numPutIfAbsent); math.Abs(p-0.5) < 0.05 {
				t.Log(msg, checkMark, p)
			} else {
				t.Fatal(msg, ballotX, p)
			}

			msg = "\t\tno result must have been recorded"
			if _, ok := r.peek(); !ok {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX)
			}
		}
	}

}

func TestExecutor_ExecuteWriteShapes(t *testing.T) {

	t.Log("given an executor whose mix always takes every branch")
	{
		cfg := newTestWorkloadConfig()
		cfg.Mix = Mix{PutChainProbability: 1, ConditionalWriteProbability: 1, FollowUpPutProbability: 1}

		t.Log("\twhen one transaction is executed")
		{
			s := &testStore{recordCalls: true}
			e, _ := newTestExecutor(cfg, s)

			_ = e.execute(context.TODO(), 9)

			msg := "\t\tget, four chain puts, put-if-absent, and follow-up put must have been issued in order"
			expectedOps := []operation{opGet, opPut, opPut, opPut, opPut, opPutIfAbsent, opPut}
			if len(s.calls) != len(expectedOps) {
				t.Fatal(msg, ballotX, len(s.calls))
			}
			for i, op := range expectedOps {
				if s.calls[i].op != op {
					t.Fatal(msg, ballotX, i, s.calls[i].op)
				}
			}
			t.Log(msg, checkMark)

			key := s.calls[0].key

			msg = "\t\tchain puts must use tagged keys, filler payload, and no ttl"
			for i, tag := range []string{"uxxxx", "vxxxx", "yxxxx", "zxxxx"} {
				c := s.calls[i+1]
				if string(c.key) == tag+string(key) && len(c.value) == 1024 && c.value[0] == 'O' && c.ttl == 0 {
					t.Log(msg, checkMark, tag)
				} else {
					t.Fatal(msg, ballotX, tag, string(c.key), c.ttl)
				}
			}

			msg = "\t\tconditional write and follow-up put must write key as value with ttl of 300 seconds"
			for _, c := range s.calls[5:] {
				if bytes.Equal(c.key, key) && bytes.Equal(c.value, key) && c.ttl == cfg.TTL {
					t.Log(msg, checkMark, c.op)
				} else {
					t.Fatal(msg, ballotX, c.op, string(c.value), c.ttl)
				}
			}

			msg = "\t\tkey must carry sequence number and worker id"
			if bytes.HasSuffix(key, []byte(":9:0")) && bytes.HasPrefix(key, []byte("bench")) {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, string(key))
			}
		}

		t.Log("\twhen put-if-absent reports conflict")
		{
			s := &testStore{recordCalls: true, putIfAbsentErr: func(_ []byte) error {
				return kvwrapper.ErrConflict
			}}
			e, r := newTestExecutor(cfg, s)

			before := failedRequestCount(opPutIfAbsent)
			err := e.execute(context.TODO(), 0)

			msg := "\t\tno error must be returned"
			if err == nil {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, err)
			}

			msg = "\t\tconflict must not have been counted or recorded"
			if _, ok := r.peek(); failedRequestCount(opPutIfAbsent) == before && !ok {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX)
			}

			msg = "\t\tfollow-up put must still have been issued"
			if s.calls[len(s.calls)-1].op == opPut {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX)
			}
		}

		t.Log("\twhen first chain put fails with transient error")
		{
			s := &testStore{recordCalls: true, putErr: func(_ []byte) error {
				return errors.New("server is busy")
			}}
			e, r := newTestExecutor(cfg, s)

			before := failedRequestCount(opPut)
			err := e.execute(context.TODO(), 0)

			msg := "\t\tno error must be returned"
			if err == nil {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, err)
			}

			msg = "\t\tremaining chain puts must have been skipped, but conditional branch must have run"
			expectedOps := []operation{opGet, opPut, opPutIfAbsent, opPut}
			if len(s.calls) != len(expectedOps) {
				t.Fatal(msg, ballotX, len(s.calls))
			}
			for i, op := range expectedOps {
				if s.calls[i].op != op {
					t.Fatal(msg, ballotX, i, s.calls[i].op)
				}
			}
			t.Log(msg, checkMark)

			msg = "\t\tchain failure and follow-up put failure must each have been counted once"
			if failedRequestCount(opPut) == before+2 {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, failedRequestCount(opPut)-before)
			}

			msg = "\t\tno result must have been recorded"
			if _, ok := r.peek(); !ok {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX)
			}
		}

		t.Log("\twhen get fails with fatal error")
		{
			fatalErr := errors.New("region error: key_not_in_region")
			s := &testStore{recordCalls: true, getErr: func(_ []byte) error {
				return fatalErr
			}}
			e, r := newTestExecutor(cfg, s)

			before := failedRequestCount(opGet)
			err := e.execute(context.TODO(), 0)

			msg := "\t\tfatal error must be returned"
			if err == fatalErr {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, err)
			}

			msg = "\t\tno further operation must have been issued"
			if len(s.calls) == 1 {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, len(s.calls))
			}

			msg = "\t\tfailure must have been counted and recorded"
			if result, ok := r.peek(); ok && result.Message == fatalErr.Error() && failedRequestCount(opGet) == before+1 {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, result)
			}
		}

		t.Log("\twhen get fails with transient error")
		{
			s := &testStore{recordCalls: true, getErr: func(_ []byte) error {
				return errors.New("deadline exceeded")
			}}
			e, _ := newTestExecutor(cfg, s)

			err := e.execute(context.TODO(), 0)

			msg := "\t\ttransaction must proceed with write branches"
			if err == nil && len(s.calls) == 7 {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, err, len(s.calls))
			}
		}

		t.Log("\twhen follow-up put fails with fatal error")
		{
			s := &testStore{recordCalls: true, putErr: func(key []byte) error {
				if bytes.HasPrefix(key, []byte("bench")) {
					return errors.New("key corrupted")
				}
				return nil
			}}
			e, r := newTestExecutor(cfg, s)

			err := e.execute(context.TODO(), 0)

			msg := "\t\tfatal error must be returned and recorded"
			if _, ok := r.peek(); err != nil && ok {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, err)
			}
		}

		t.Log("\twhen run is cancelled and store call fails because of it")
		{
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			s := &testStore{recordCalls: true, getErr: func(_ []byte) error {
				return jujuerrors.Annotate(context.Canceled, "get from region")
			}}
			e, r := newTestExecutor(cfg, s)

			before := failedRequestCount(opGet)
			err := e.execute(ctx, 0)

			msg := "\t\tno error must be returned"
			if err == nil {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, err)
			}

			msg = "\t\tfailure must neither have been counted nor classified"
			if _, ok := r.peek(); !ok && failedRequestCount(opGet) == before {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX)
			}

			msg = "\t\ttransaction must have been abandoned after failed get"
			if len(s.calls) == 1 {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, len(s.calls))
			}
		}

		t.Log("\twhen run is cancelled and store call fails with fatal error unrelated to cancellation")
		{
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			s := &testStore{getErr: func(_ []byte) error {
				return errors.New("region error: key corrupted")
			}}
			e, r := newTestExecutor(cfg, s)

			before := failedRequestCount(opGet)
			err := e.execute(ctx, 0)

			msg := "\t\tfatal error must be returned"
			if err != nil {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX)
			}

			msg = "\t\tfailure must have been counted and recorded"
			if result, ok := r.peek(); ok && result.Message == "region error: key corrupted" && failedRequestCount(opGet) == before+1 {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, result, failedRequestCount(opGet)-before)
			}
		}

		t.Log("\twhen run is cancelled and store call fails with transient error unrelated to cancellation")
		{
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			s := &testStore{getErr: func(_ []byte) error {
				return errors.New("server is busy")
			}}
			e, r := newTestExecutor(cfg, s)

			before := failedRequestCount(opGet)
			err := e.execute(ctx, 0)

			msg := "\t\tfailure must have been counted but not recorded"
			if _, ok := r.peek(); err == nil && !ok && failedRequestCount(opGet) == before+1 {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, err)
			}
		}
	}

}
