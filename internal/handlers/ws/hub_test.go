package ws

import (
	"testing"
	"time"
)

func newTestHub() *Hub {
	// Built directly so no background workers run during the test.
	return &Hub{
		squads:       make(map[uint]map[uint]*ClientConnection),
		pingInterval: time.Hour,
		pongTimeout:  time.Hour,
	}
}

func newTestClient(squadID, profileID uint) *ClientConnection {
	return &ClientConnection{
		SquadID:    squadID,
		ProfileID:  profileID,
		LastPong:   time.Now(),
		PingTicker: time.NewTicker(time.Hour),
		CloseChan:  make(chan struct{}),
	}
}

func TestAttachRetiresPreviousConnection(t *testing.T) {
	h := newTestHub()

	old := newTestClient(1, 2)
	if n := h.attach(old); n != 1 {
		t.Fatalf("online after first attach = %d, want 1", n)
	}

	replacement := newTestClient(1, 2)
	if n := h.attach(replacement); n != 1 {
		t.Fatalf("online after reconnect = %d, want 1", n)
	}

	select {
	case <-old.CloseChan:
	default:
		t.Errorf("previous connection was not retired on reconnect")
	}
	select {
	case <-replacement.CloseChan:
		t.Errorf("reconnect retired the replacement connection")
	default:
	}
	if h.squads[1][2] != replacement {
		t.Errorf("channel does not hold the replacement connection")
	}
}

func TestAttachKeepsDistinctMembers(t *testing.T) {
	h := newTestHub()

	first := newTestClient(1, 2)
	second := newTestClient(1, 3)
	h.attach(first)
	if n := h.attach(second); n != 2 {
		t.Fatalf("online = %d, want 2", n)
	}

	select {
	case <-first.CloseChan:
		t.Errorf("attaching another member retired an unrelated connection")
	default:
	}
}
