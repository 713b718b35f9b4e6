package kvwrapper

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"kvflow/client"
	"kvflow/logging"
)

type (
	// Store is the subset of key-value operations the workload issues. Implementations must be
	// safe for concurrent use by all workers.
	Store interface {
		Get(ctx context.Context, key []byte) ([]byte, error)
		// Put writes value under key; a ttl of zero means the entry does not expire.
		Put(ctx context.Context, key, value []byte, ttl time.Duration) error
		// PutIfAbsent returns ErrConflict if key already holds a value.
		PutIfAbsent(ctx context.Context, key, value []byte, ttl time.Duration) error
		Close(ctx context.Context) error
	}
	StoreType string
	Config    struct {
		Type           StoreType
		RequestTimeout time.Duration
		Tikv           *TikvConfig
		Hazelcast      *HazelcastConfig
	}
	TikvConfig struct {
		PdAddresses []string
	}
	HazelcastConfig struct {
		Cluster            string
		Members            []string
		MapName            string
		UseUniSocketClient bool
	}
	newStoreFunc func(ctx context.Context, cfg *Config) (Store, error)
)

const (
	Tikv      StoreType = "tikv"
	Hazelcast StoreType = "hazelcast"
)

const storeKeyPath = "store"

var (
	ErrConflict         = errors.New("key already exists")
	ErrUnknownStoreType = errors.New("unknown store type")
)

var (
	lp           = logging.GetLogProviderInstance(client.ID())
	storeFactory = map[StoreType]newStoreFunc{
		Tikv:      newTikvStore,
		Hazelcast: newHazelcastStore,
	}
)

func validateStoreType(keyPath string, a any) error {

	if err := client.ValidateString(keyPath, a); err != nil {
		return err
	}

	if _, ok := storeFactory[StoreType(a.(string))]; !ok {
		return fmt.Errorf("%s: %w: '%s'", keyPath, ErrUnknownStoreType, a)
	}

	return nil

}

// PopulateConfig reads the store section of the configuration.
func PopulateConfig(a client.ConfigPropertyAssigner) (*Config, error) {

	var assignmentOps []func() error

	var storeType StoreType
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(storeKeyPath+".type", validateStoreType, func(v any) {
			storeType = StoreType(v.(string))
		})
	})

	var requestTimeoutMs int
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(storeKeyPath+".requestTimeoutMs", client.ValidateNonNegativeInt, func(v any) {
			requestTimeoutMs = v.(int)
		})
	})

	var pdAddresses []string
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(storeKeyPath+".tikv.pdAddresses", client.ValidateStringSlice, func(v any) {
			pdAddresses = client.AsStringSlice(v)
		})
	})

	var hzCluster string
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(storeKeyPath+".hazelcast.cluster", client.ValidateString, func(v any) {
			hzCluster = v.(string)
		})
	})

	var hzMembers []string
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(storeKeyPath+".hazelcast.members", client.ValidateStringSlice, func(v any) {
			hzMembers = client.AsStringSlice(v)
		})
	})

	var hzMapName string
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(storeKeyPath+".hazelcast.mapName", client.ValidateString, func(v any) {
			hzMapName = v.(string)
		})
	})

	var useUniSocketClient bool
	assignmentOps = append(assignmentOps, func() error {
		return a.Assign(storeKeyPath+".hazelcast.useUniSocketClient", client.ValidateBool, func(v any) {
			useUniSocketClient = v.(bool)
		})
	})

	for _, f := range assignmentOps {
		if err := f(); err != nil {
			return nil, err
		}
	}

	return &Config{
		Type:           storeType,
		RequestTimeout: time.Duration(requestTimeoutMs) * time.Millisecond,
		Tikv: &TikvConfig{
			PdAddresses: pdAddresses,
		},
		Hazelcast: &HazelcastConfig{
			Cluster:            hzCluster,
			Members:            hzMembers,
			MapName:            hzMapName,
			UseUniSocketClient: useUniSocketClient,
		},
	}, nil

}

// NewStore connects to the store backend selected in cfg.
func NewStore(ctx context.Context, cfg *Config) (Store, error) {

	f, ok := storeFactory[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownStoreType, cfg.Type)
	}

	lp.LogStoreEvent(fmt.Sprintf("connecting to %s store, request timeout: %v", cfg.Type, cfg.RequestTimeout), log.InfoLevel)

	s, err := f(ctx, cfg)
	if err != nil {
		lp.LogStoreEvent(fmt.Sprintf("unable to connect to %s store: %v", cfg.Type, err), log.ErrorLevel)
		return nil, err
	}

	return s, nil

}

// withRequestTimeout bounds a single store request. A timeout of zero leaves only the caller's deadline.
func withRequestTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {

	if timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, timeout)

}
