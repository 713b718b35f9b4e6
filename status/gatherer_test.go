package status

import (
	"math/rand"
	"sync"
	"testing"
)

type (
	testLocker struct {
		m                    sync.Mutex
		numLocks, numUnlocks int
	}
)

const (
	checkMark = "✓"
	ballotX   = "✗"
)

func (l *testLocker) lock() {

	l.m.Lock()
	l.numLocks++

}

func (l *testLocker) unlock() {

	l.numUnlocks++
	l.m.Unlock()

}

func TestGatherer_InsertSynchronously(t *testing.T) {

	t.Log("given the need to test synchronous inserts of status updates")
	{
		t.Log("\twhen update is inserted")
		{
			key := "awesomeKey"
			value := "awesomeValue"

			g := NewGatherer()
			g.InsertSynchronously(Update{Key: key, Value: value})

			msg := "\t\tinserted update must be present in status map"
			if v, ok := g.status[key]; ok && v == value {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX)
			}
		}

		t.Log("\twhen multiple updates are performed simultaneously")
		{
			key := "someNumberKey"

			l := &testLocker{}
			g := &Gatherer{
				l:       l,
				status:  map[string]any{},
				Updates: make(chan Update),
			}

			var wg sync.WaitGroup
			upper := 100
			for i := 0; i < upper; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					g.InsertSynchronously(Update{
						Key:   key,
						Value: rand.Intn(100),
					})
				}()
			}
			wg.Wait()

			msg := "\t\tnumber of mutex locks and unlocks must be equal to number of updates"
			if l.numLocks == upper && l.numUnlocks == upper {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, l.numLocks, l.numUnlocks)
			}
		}
	}

}

func TestGatherer_Listen(t *testing.T) {

	t.Log("given a gatherer listening for status updates")
	{
		t.Log("\twhen updates are sent and listening is stopped afterwards")
		{
			g := NewGatherer()
			ready := make(chan struct{})
			done := make(chan struct{})
			go func() {
				g.Listen(ready)
				close(done)
			}()
			<-ready

			msg := "\t\tgatherer must report listening not yet stopped"
			if !g.ListeningStopped() {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX)
			}

			g.Updates <- Update{Key: "numTransactions", Value: 42}
			g.StopListen()
			<-done

			status := g.AssembleStatusCopy()

			msg = "\t\tsent update must be reflected in status copy"
			if status["numTransactions"] == 42 {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, status)
			}

			msg = "\t\tgatherer must report listening stopped"
			if g.ListeningStopped() && status[UpdateKeyRunFinished] == true {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX, status)
			}
		}

		t.Log("\twhen status copy is modified")
		{
			g := NewGatherer()
			g.InsertSynchronously(Update{Key: "currentState", Value: "running"})

			c := g.AssembleStatusCopy()
			c["currentState"] = "done"

			msg := "\t\tgatherer's own status must remain untouched"
			if g.AssembleStatusCopy()["currentState"] == "running" {
				t.Log(msg, checkMark)
			} else {
				t.Fatal(msg, ballotX)
			}
		}
	}

}
