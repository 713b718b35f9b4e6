package status

import (
	"sync"
)

type (
	Update struct {
		Key   string
		Value any
	}
	Gatherer struct {
		l       locker
		status  map[string]any
		Updates chan Update
	}
	locker interface {
		lock()
		unlock()
	}
	mutexLocker struct {
		m sync.Mutex
	}
)

const (
	UpdateKeyRunFinished = "runFinished"
)

var (
	quitStatusGathering = Update{}
)

func (l *mutexLocker) lock() {

	l.m.Lock()

}

func (l *mutexLocker) unlock() {

	l.m.Unlock()

}

func NewGatherer() *Gatherer {

	return &Gatherer{
		l:       &mutexLocker{},
		status:  map[string]any{},
		Updates: make(chan Update),
	}

}

func (g *Gatherer) InsertSynchronously(u Update) {

	g.l.lock()
	defer g.l.unlock()

	g.status[u.Key] = u.Value

}

func (g *Gatherer) AssembleStatusCopy() map[string]any {

	g.l.lock()
	defer g.l.unlock()

	mapCopy := make(map[string]any, len(g.status))
	for k, v := range g.status {
		mapCopy[k] = v
	}

	return mapCopy

}

// Listen applies updates sent on the Updates channel until StopListen is called. The ready
// channel, if non-nil, is closed once the gatherer accepts updates.
func (g *Gatherer) Listen(ready chan struct{}) {

	g.InsertSynchronously(Update{Key: UpdateKeyRunFinished, Value: false})

	if ready != nil {
		close(ready)
	}

	for {
		update := <-g.Updates
		if update.Key == quitStatusGathering.Key && update.Value == nil {
			g.InsertSynchronously(Update{Key: UpdateKeyRunFinished, Value: true})
			return
		}
		g.InsertSynchronously(update)
	}

}

func (g *Gatherer) StopListen() {

	g.Updates <- quitStatusGathering

}

func (g *Gatherer) ListeningStopped() bool {

	g.l.lock()
	defer g.l.unlock()

	finished, ok := g.status[UpdateKeyRunFinished].(bool)
	return ok && finished

}
