package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := &Event{Type: "transaction.created", Timestamp: time.Now()}
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []string{"battery.returned", "station.transfer"},
	}}

	returned := &Event{Type: "battery.returned"}
	transfer := &Event{Type: "station.transfer"}
	created := &Event{Type: "transaction.created"}

	if !h.shouldSend(client, returned) {
		t.Error("Should receive battery.returned events")
	}
	if !h.shouldSend(client, transfer) {
		t.Error("Should receive station.transfer events")
	}
	if h.shouldSend(client, created) {
		t.Error("Should NOT receive transaction.created events")
	}
}

func TestShouldSend_StationFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		StationIDs: []int64{7},
	}}

	matching := &Event{
		Type: "transaction.created",
		Data: map[string]interface{}{"stationId": 7},
	}
	notMatching := &Event{
		Type: "transaction.created",
		Data: map[string]interface{}{"stationId": 3},
	}
	matchingTransfer := &Event{
		Type: "station.transfer",
		Data: map[string]interface{}{"fromStationID": 2, "toStationID": 7},
	}
	noStation := &Event{
		Type: "battery.returned",
		Data: map[string]interface{}{"batteryID": 42},
	}

	if !h.shouldSend(client, matching) {
		t.Error("Should match on stationId")
	}
	if h.shouldSend(client, notMatching) {
		t.Error("Should NOT match unrelated stations")
	}
	if !h.shouldSend(client, matchingTransfer) {
		t.Error("Should match on transfer target station")
	}
	if !h.shouldSend(client, noStation) {
		t.Error("Events with no station reference should pass through")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllEvents
	client := &Client{sub: Subscription{}}

	event := &Event{Type: "transaction.created"}
	if !h.shouldSend(client, event) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

func TestShouldSend_NonMapData(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		StationIDs: []int64{1},
	}}

	// Event with non-object data should not crash
	event := &Event{
		Type: "battery.returned",
		Data: "string data not an object",
	}

	// Station filter skips data it can't extract IDs from, so event passes through
	if !h.shouldSend(client, event) {
		t.Error("Non-object data should pass through when station filter can't extract IDs")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Broadcast an event
	h.Broadcast(&Event{Type: "transaction.created", Timestamp: time.Now()})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak 1, got %v", stats["peakClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
	// Peak should still be 1
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak still 1, got %v", stats["peakClients"])
	}
}

func TestHub_PublishReachesClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.Publish("station.transfer", map[string]interface{}{
		"fromStationID": 1, "toStationID": 2, "count": 3,
	})

	select {
	case msg := <-client.send:
		var event Event
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("Failed to decode event: %v", err)
		}
		if event.Type != "station.transfer" {
			t.Errorf("Expected station.transfer, got %s", event.Type)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for published event")
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only wants battery returns
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{EventTypes: []string{"battery.returned"}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Send a transaction event (should be filtered out)
	h.Broadcast(&Event{Type: "transaction.created", Timestamp: time.Now()})
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive transaction event")
	default:
		// Good - filtered out
	}

	// Send a return event (should be received)
	h.Broadcast(&Event{Type: "battery.returned", Timestamp: time.Now()})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive battery.returned event")
	}
}
