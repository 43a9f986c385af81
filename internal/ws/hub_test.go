package ws

import (
	"errors"
	"testing"

	"github.com/davrbek/coursehub-backend/internal/platform/logger"
)

type fakeConn struct {
	pushed []Event
	fail   bool
	closed bool
}

func (f *fakeConn) Push(ev Event) error {
	if f.fail {
		return errors.New("push failed")
	}
	f.pushed = append(f.pushed, ev)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewHub("test", log)
}

func TestBroadcastWithoutSubscribersCreatesNoTopic(t *testing.T) {
	hub := newTestHub(t)

	hub.Broadcast(42, Event{Event: EventAssignmentCreated})

	if hub.HasTopic(42) {
		t.Fatalf("broadcast to empty topic should not create a registry entry")
	}
}

func TestConnectDisconnectRemovesEmptyTopic(t *testing.T) {
	hub := newTestHub(t)
	conn := &fakeConn{}

	hub.Connect(7, conn)
	if got := hub.ConnCount(7); got != 1 {
		t.Fatalf("ConnCount(7) = %d, want 1", got)
	}

	hub.Disconnect(7, conn)
	if hub.HasTopic(7) {
		t.Fatalf("topic should be removed once its last connection leaves")
	}
}

func TestBroadcastDeliversToAllSubscribers(t *testing.T) {
	hub := newTestHub(t)
	a := &fakeConn{}
	b := &fakeConn{}
	hub.Connect(1, a)
	hub.Connect(1, b)
	hub.Connect(2, &fakeConn{})

	hub.Broadcast(1, Event{Event: EventGradeUpdated})

	for name, conn := range map[string]*fakeConn{"a": a, "b": b} {
		if len(conn.pushed) != 1 || conn.pushed[0].Event != EventGradeUpdated {
			t.Fatalf("conn %s: got %v, want one grade_updated event", name, conn.pushed)
		}
	}
	if got := hub.ConnCount(2); got != 1 {
		t.Fatalf("unrelated topic lost a connection: ConnCount(2) = %d", got)
	}
}

func TestBroadcastPrunesFailedConnections(t *testing.T) {
	hub := newTestHub(t)
	dead := &fakeConn{fail: true}
	live := &fakeConn{}
	hub.Connect(5, dead)
	hub.Connect(5, live)

	hub.Broadcast(5, Event{Event: EventPrivateMessageCreated})

	if !dead.closed {
		t.Fatalf("failed connection should be closed")
	}
	if got := hub.ConnCount(5); got != 1 {
		t.Fatalf("ConnCount(5) = %d, want 1 after pruning", got)
	}
	if len(live.pushed) != 1 {
		t.Fatalf("surviving connection should still receive the event, got %d", len(live.pushed))
	}

	// A second broadcast reaches only the survivor.
	hub.Broadcast(5, Event{Event: EventThreadUpdated})
	if len(live.pushed) != 2 {
		t.Fatalf("survivor should receive subsequent broadcasts, got %d events", len(live.pushed))
	}
}
