package wshub

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRegisterAndBroadcast(t *testing.T) {
	h := NewHub()

	c1 := &Client{PlayerID: "p1", Send: make(chan []byte, 16)}
	c2 := &Client{PlayerID: "p2", Send: make(chan []byte, 16)}
	c3 := &Client{PlayerID: "p3", Send: make(chan []byte, 16)}

	h.Register(c1)
	h.Register(c2)
	h.Register(c3)

	payload, _ := json.Marshal(map[string]float64{"aliceAngle": 0, "bobAngle": 22.5})
	msg := ServerMessage{Type: "measurement", Room: "entanglement", Payload: payload}
	h.BroadcastExcept("p1", msg)

	// c2 and c3 should receive the message, c1 should not
	select {
	case data := <-c2.Send:
		var got ServerMessage
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Type != "measurement" || got.Room != "entanglement" {
			t.Fatalf("unexpected message: %+v", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("c2 did not receive message")
	}

	select {
	case <-c3.Send:
		// expected
	case <-time.After(100 * time.Millisecond):
		t.Fatal("c3 did not receive message")
	}

	select {
	case <-c1.Send:
		t.Fatal("c1 should not receive its own message")
	default:
		// expected
	}
}

func TestBroadcastToAll(t *testing.T) {
	h := NewHub()

	c1 := &Client{PlayerID: "p1", Send: make(chan []byte, 16)}
	c2 := &Client{PlayerID: "p2", Send: make(chan []byte, 16)}
	h.Register(c1)
	h.Register(c2)

	h.Broadcast(ServerMessage{Type: "hint", Room: "vault"})

	for _, c := range []*Client{c1, c2} {
		select {
		case <-c.Send:
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("%s did not receive message", c.PlayerID)
		}
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := NewHub()

	c1 := &Client{PlayerID: "p1", Send: make(chan []byte, 16)}
	h.Register(c1)
	h.Unregister("p1")

	_, ok := <-c1.Send
	if ok {
		t.Fatal("c1.Send should be closed")
	}
}

func TestUnregisterNonexistent(t *testing.T) {
	h := NewHub()
	// Should not panic
	h.Unregister("nonexistent")
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	h := NewHub()

	// Channel with capacity 1
	c := &Client{PlayerID: "p1", Send: make(chan []byte, 1)}
	h.Register(c)

	// Fill the channel
	c.Send <- []byte("filler")

	// This should not block — message dropped
	h.Broadcast(ServerMessage{Type: "measurement"})

	// Only the filler should be in the channel
	data := <-c.Send
	if string(data) != "filler" {
		t.Fatalf("expected filler, got: %s", data)
	}

	select {
	case <-c.Send:
		t.Fatal("should be empty after draining filler")
	default:
		// expected
	}
}
