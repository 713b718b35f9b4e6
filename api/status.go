package api

import (
	"sync"
)

type (
	ActorGroup           string
	statefulActorTracker struct {
		actors map[ActorGroup]*sync.Map
	}
)

const (
	FlowRunners  ActorGroup = "flowRunners"
	StoreClients ActorGroup = "storeClients"
)

var (
	availableActorGroups = []ActorGroup{FlowRunners, StoreClients}
	tracker              = newStatefulActorTracker()
)

func newStatefulActorTracker() *statefulActorTracker {

	actors := make(map[ActorGroup]*sync.Map, len(availableActorGroups))
	for _, g := range availableActorGroups {
		actors[g] = &sync.Map{}
	}

	return &statefulActorTracker{actors}

}

// RegisterStatefulActor makes the status returned by queryStatusFunc available on the status
// endpoint, grouped under the given actor group and source.
func RegisterStatefulActor(g ActorGroup, source string, queryStatusFunc func() map[string]any) {

	if m, ok := tracker.actors[g]; ok {
		m.Store(source, queryStatusFunc)
	}

}

func assembleActorStatus() map[string]any {

	result := make(map[string]any, len(availableActorGroups))

	for _, g := range availableActorGroups {
		groupStatus := map[string]any{}
		tracker.actors[g].Range(func(key, value any) bool {
			if s := value.(func() map[string]any)(); s != nil {
				groupStatus[key.(string)] = s
			} else {
				groupStatus[key.(string)] = map[string]any{}
			}
			return true
		})
		result[string(g)] = groupStatus
	}

	return result

}
