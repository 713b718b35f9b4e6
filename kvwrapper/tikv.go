package kvwrapper

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tikv/client-go/v2/config"
	"github.com/tikv/client-go/v2/rawkv"
)

type (
	rawKVClient interface {
		get(ctx context.Context, key []byte) ([]byte, error)
		put(ctx context.Context, key, value []byte, ttlSeconds uint64) error
		// compareAndSwap writes value if the current value equals previous; a nil previous
		// requires the key to be absent.
		compareAndSwap(ctx context.Context, key, previous, value []byte) (bool, error)
		close() error
	}
	defaultRawKVClient struct {
		cli *rawkv.Client
	}
	tikvStore struct {
		c       rawKVClient
		timeout time.Duration
	}
)

var newRawKVClient = func(ctx context.Context, pdAddresses []string) (rawKVClient, error) {

	cli, err := rawkv.NewClient(ctx, pdAddresses, config.Security{})
	if err != nil {
		return nil, err
	}

	return &defaultRawKVClient{cli.SetAtomicForCAS(true)}, nil

}

func (c *defaultRawKVClient) get(ctx context.Context, key []byte) ([]byte, error) {
	return c.cli.Get(ctx, key)
}

func (c *defaultRawKVClient) put(ctx context.Context, key, value []byte, ttlSeconds uint64) error {

	if ttlSeconds == 0 {
		return c.cli.Put(ctx, key, value)
	}

	return c.cli.PutWithTTL(ctx, key, value, ttlSeconds)

}

func (c *defaultRawKVClient) compareAndSwap(ctx context.Context, key, previous, value []byte) (bool, error) {

	_, swapped, err := c.cli.CompareAndSwap(ctx, key, previous, value)
	return swapped, err

}

func (c *defaultRawKVClient) close() error {
	return c.cli.Close()
}

func newTikvStore(ctx context.Context, cfg *Config) (Store, error) {

	if cfg.Tikv == nil || len(cfg.Tikv.PdAddresses) == 0 {
		return nil, errors.New("no pd address given for tikv store")
	}

	lp.LogStoreEvent(fmt.Sprintf("creating tikv raw client, pd addresses: %v", cfg.Tikv.PdAddresses), log.InfoLevel)

	c, err := newRawKVClient(ctx, cfg.Tikv.PdAddresses)
	if err != nil {
		return nil, errors.Annotatef(err, "create tikv client for pd %v", cfg.Tikv.PdAddresses)
	}

	return &tikvStore{c: c, timeout: cfg.RequestTimeout}, nil

}

func (s *tikvStore) Get(ctx context.Context, key []byte) ([]byte, error) {

	ctx, cancel := withRequestTimeout(ctx, s.timeout)
	defer cancel()

	v, err := s.c.get(ctx, key)
	if err != nil {
		return nil, errors.Trace(err)
	}

	return v, nil

}

func (s *tikvStore) Put(ctx context.Context, key, value []byte, ttl time.Duration) error {

	ctx, cancel := withRequestTimeout(ctx, s.timeout)
	defer cancel()

	return errors.Trace(s.c.put(ctx, key, value, ttlSeconds(ttl)))

}

// PutIfAbsent claims the key through compare-and-swap. The swap request carries no TTL, so a
// claimed key is rewritten with its TTL afterwards.
func (s *tikvStore) PutIfAbsent(ctx context.Context, key, value []byte, ttl time.Duration) error {

	ctx, cancel := withRequestTimeout(ctx, s.timeout)
	defer cancel()

	swapped, err := s.c.compareAndSwap(ctx, key, nil, value)
	if err != nil {
		return errors.Trace(err)
	}
	if !swapped {
		return ErrConflict
	}

	if secs := ttlSeconds(ttl); secs > 0 {
		return errors.Trace(s.c.put(ctx, key, value, secs))
	}

	return nil

}

func (s *tikvStore) Close(_ context.Context) error {

	lp.LogStoreEvent("closing tikv raw client", log.InfoLevel)
	return errors.Trace(s.c.close())

}

func ttlSeconds(ttl time.Duration) uint64 {

	if ttl <= 0 {
		return 0
	}

	return uint64(ttl / time.Second)

}
