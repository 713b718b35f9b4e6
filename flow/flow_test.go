package flow

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"kvflow/kvwrapper"
)

type (
	testConfigPropertyAssigner struct {
		returnError bool
		dummyConfig map[string]any
	}
	storeCall struct {
		op    operation
		key   []byte
		value []byte
		ttl   time.Duration
	}
	testStore struct {
		m              sync.Mutex
		recordCalls    bool
		calls          []storeCall
		numGets        int
		numPuts        int
		numPutIfAbsent int
		closeCalls     int
		delay          time.Duration
		getErr         func(key []byte) error
		putErr         func(key []byte) error
		putIfAbsentErr func(key []byte) error
	}
)

const (
	checkMark = "✓"
	ballotX   = "✗"
)

var _ kvwrapper.Store = &testStore{}

func (a testConfigPropertyAssigner) Assign(keyPath string, eval func(string, any) error, assign func(any)) error {

	if a.returnError {
		return errors.New("deliberately thrown error")
	}

	if value, ok := a.dummyConfig[keyPath]; ok {
		if err := eval(keyPath, value); err != nil {
			return err
		}
		assign(value)
	}

	return nil

}

func (s *testStore) record(c storeCall) {

	if s.recordCalls {
		s.calls = append(s.calls, c)
	}

}

func (s *testStore) Get(_ context.Context, key []byte) ([]byte, error) {

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.m.Lock()
	defer s.m.Unlock()

	s.numGets++
	s.record(storeCall{op: opGet, key: key})

	if s.getErr != nil {
		if err := s.getErr(key); err != nil {
			return nil, err
		}
	}

	return nil, nil

}

func (s *testStore) Put(_ context.Context, key, value []byte, ttl time.Duration) error {

	s.m.Lock()
	defer s.m.Unlock()

	s.numPuts++
	s.record(storeCall{op: opPut, key: key, value: value, ttl: ttl})

	if s.putErr != nil {
		return s.putErr(key)
	}

	return nil

}

func (s *testStore) PutIfAbsent(_ context.Context, key, value []byte, ttl time.Duration) error {

	s.m.Lock()
	defer s.m.Unlock()

	s.numPutIfAbsent++
	s.record(storeCall{op: opPutIfAbsent, key: key, value: value, ttl: ttl})

	if s.putIfAbsentErr != nil {
		return s.putIfAbsentErr(key)
	}

	return nil

}

func (s *testStore) Close(_ context.Context) error {

	s.m.Lock()
	defer s.m.Unlock()

	s.closeCalls++
	return nil

}

func errForWorker(workerID string, err error) func(key []byte) error {

	suffix := []byte(":" + workerID)
	return func(key []byte) error {
		if bytes.HasSuffix(key, suffix) {
			return err
		}
		return nil
	}

}

func newTestWorkloadConfig() *WorkloadConfig {

	return &WorkloadConfig{
		Enabled:         true,
		KeyPrefix:       "bench",
		NumWorkers:      4,
		DurationSeconds: 1,
		ReportPath:      "report.json",
		RandomSeed:      42,
		TTL:             300 * time.Second,
		FillerSizeBytes: 1024,
		Mix:             DefaultMix,
	}

}

func newTestExecutor(cfg *WorkloadConfig, s kvwrapper.Store) (*executor, *recorder) {

	r := &recorder{}
	p := &pool{
		cfg:   cfg,
		store: s,
		c:     &classifier{r},
		seed:  cfg.RandomSeed,
	}

	return p.newExecutor(0), r

}
