package client

import (
	"sync"

	"github.com/google/uuid"
)

var (
	clientID     uuid.UUID
	clientIDOnce sync.Once
)

// ID identifies this load generator instance in logs and in the names of store client connections.
func ID() uuid.UUID {
	clientIDOnce.Do(func() {
		clientID = uuid.New()
	})
	return clientID
}
