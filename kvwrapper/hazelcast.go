package kvwrapper

import (
	"context"
	"fmt"
	"time"

	"github.com/hazelcast/hazelcast-go-client"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"kvflow/client"
)

type (
	hzMap interface {
		Get(ctx context.Context, key any) (any, error)
		Set(ctx context.Context, key any, value any) error
		SetWithTTL(ctx context.Context, key any, value any, ttl time.Duration) error
		PutIfAbsentWithTTL(ctx context.Context, key any, value any, ttl time.Duration) (any, error)
	}
	hzClientCloser interface {
		Shutdown(ctx context.Context) error
	}
	hazelcastStore struct {
		m       hzMap
		closer  hzClientCloser
		timeout time.Duration
	}
)

var newHzClient = func(ctx context.Context, cfg *HazelcastConfig) (hzClientCloser, hzMap, error) {

	hzConfig := assembleHzConfig(cfg)
	lp.LogStoreEvent(fmt.Sprintf("hazelcast client config: %+v", hzConfig), log.InfoLevel)

	hzClient, err := hazelcast.StartNewClientWithConfig(ctx, hzConfig)
	if err != nil {
		return nil, nil, err
	}

	m, err := hzClient.GetMap(ctx, cfg.MapName)
	if err != nil {
		_ = hzClient.Shutdown(ctx)
		return nil, nil, err
	}

	return hzClient, m, nil

}

func assembleHzConfig(cfg *HazelcastConfig) hazelcast.Config {

	hzConfig := hazelcast.Config{}
	hzConfig.ClientName = fmt.Sprintf("%s-kvflow", client.ID())
	hzConfig.Cluster.Name = cfg.Cluster
	hzConfig.Cluster.Unisocket = cfg.UseUniSocketClient
	hzConfig.Cluster.Network.SetAddresses(cfg.Members...)

	return hzConfig

}

func newHazelcastStore(ctx context.Context, cfg *Config) (Store, error) {

	if cfg.Hazelcast == nil || len(cfg.Hazelcast.Members) == 0 {
		return nil, errors.New("no members given for hazelcast store")
	}

	closer, m, err := newHzClient(ctx, cfg.Hazelcast)
	if err != nil {
		return nil, errors.Annotatef(err, "start hazelcast client for cluster '%s'", cfg.Hazelcast.Cluster)
	}

	return &hazelcastStore{m: m, closer: closer, timeout: cfg.RequestTimeout}, nil

}

func (s *hazelcastStore) Get(ctx context.Context, key []byte) ([]byte, error) {

	ctx, cancel := withRequestTimeout(ctx, s.timeout)
	defer cancel()

	v, err := s.m.Get(ctx, string(key))
	if err != nil {
		return nil, errors.Trace(err)
	}

	return asBytes(v), nil

}

func (s *hazelcastStore) Put(ctx context.Context, key, value []byte, ttl time.Duration) error {

	ctx, cancel := withRequestTimeout(ctx, s.timeout)
	defer cancel()

	if ttl <= 0 {
		return errors.Trace(s.m.Set(ctx, string(key), value))
	}

	return errors.Trace(s.m.SetWithTTL(ctx, string(key), value, ttl))

}

func (s *hazelcastStore) PutIfAbsent(ctx context.Context, key, value []byte, ttl time.Duration) error {

	ctx, cancel := withRequestTimeout(ctx, s.timeout)
	defer cancel()

	previous, err := s.m.PutIfAbsentWithTTL(ctx, string(key), value, ttl)
	if err != nil {
		return errors.Trace(err)
	}
	if previous != nil {
		return ErrConflict
	}

	return nil

}

func (s *hazelcastStore) Close(ctx context.Context) error {

	lp.LogStoreEvent("shutting down hazelcast client", log.InfoLevel)
	return errors.Trace(s.closer.Shutdown(ctx))

}

func asBytes(v any) []byte {

	switch b := v.(type) {
	case nil:
		return nil
	case []byte:
		return b
	case string:
		return []byte(b)
	default:
		return []byte(fmt.Sprintf("%v", b))
	}

}
