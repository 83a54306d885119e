package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/mcp-training/gameids/game/session"
)

func newTestClient(hub *Hub, gameID string) *Client {
	return &Client{
		hub:    hub,
		gameID: gameID,
		send:   make(chan []byte, 256),
	}
}

func testEvent(gameID string, typ session.EventType, players int) session.Event {
	return session.Event{
		Type:    typ,
		GameID:  gameID,
		Players: players,
		Entry:   session.LogEntry{Timestamp: time.Now(), Message: "test entry"},
	}
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.games == nil {
		t.Error("Hub games map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels must be initialized")
	}
	if hub.logger == nil {
		t.Error("Hub logger must default to slog.Default()")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "test-game")

	hub.registerClient(client)

	if !hub.games["test-game"][client] {
		t.Error("Client was not registered for game")
	}
	if hub.ClientCount("test-game") != 1 {
		t.Errorf("Expected 1 client, got %d", hub.ClientCount("test-game"))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "test-game")

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.games["test-game"]; exists {
		t.Error("Game should have been cleaned up after last client unregistered")
	}

	// The send channel is closed exactly once
	if _, ok := <-client.send; ok {
		t.Error("Expected send channel to be closed")
	}
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInGame(t *testing.T) {
	hub := NewHub(nil)
	client1 := newTestClient(hub, "shared")
	client2 := newTestClient(hub, "shared")

	hub.registerClient(client1)
	hub.registerClient(client2)
	if hub.ClientCount("shared") != 2 {
		t.Errorf("Expected 2 clients, got %d", hub.ClientCount("shared"))
	}

	hub.unregisterClient(client1)
	if hub.ClientCount("shared") != 1 {
		t.Errorf("Expected 1 client remaining, got %d", hub.ClientCount("shared"))
	}
	if !hub.games["shared"][client2] {
		t.Error("client2 should still be registered")
	}
}

func TestHubBroadcastJoinEvent(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "broadcast-test")
	other := newTestClient(hub, "other-game")
	hub.registerClient(client)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{GameID: "broadcast-test", Event: session.EventJoined, Players: 2})

	select {
	case data := <-client.send:
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.GameID != "broadcast-test" {
			t.Errorf("Expected gameId broadcast-test, got %s", message.GameID)
		}
		if message.Event != session.EventJoined || message.Players != 2 {
			t.Errorf("Unexpected message: %+v", message)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("No message received within timeout")
	}

	select {
	case <-other.send:
		t.Error("Clients of other games must not receive the event")
	default:
	}

	// Non-terminal events keep the client subscribed
	if hub.ClientCount("broadcast-test") != 1 {
		t.Error("Client should remain registered after a join event")
	}
}

func TestHubTerminalEventDisconnects(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "ending")
	hub.registerClient(client)

	hub.broadcastMessage(&Message{GameID: "ending", Event: session.EventExpired, Players: 1})

	data, ok := <-client.send
	if !ok {
		t.Fatal("Expected the final event before the channel closes")
	}
	if !strings.Contains(string(data), `"event":"expired"`) {
		t.Errorf("Unexpected final message: %s", data)
	}
	if _, ok := <-client.send; ok {
		t.Error("Expected send channel to be closed after terminal event")
	}
	if hub.ClientCount("ending") != 0 {
		t.Error("Game should have no clients after terminal event")
	}
}

func TestHubPublishAfterStop(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	hub.Stop()
	hub.Stop()

	done := make(chan struct{})
	go func() {
		// Fill past the buffer; must not block once stopped
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.Publish(testEvent("stopped", session.EventCreated, 1))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after Stop")
	}
}

func startTestServer(t *testing.T, hub *Hub, live func() bool) (*httptest.Server, string) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("gameId"), live)
	}))
	t.Cleanup(server.Close)
	return server, "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWebSocketUpgrade(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	_, wsURL := startTestServer(t, hub, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?gameId=ws-test", nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}

	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 1 })

	conn.Close()

	waitFor(t, func() bool { return hub.ClientCount("ws-test") == 0 })
}

func TestWebSocketReceivesLifecycle(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	_, wsURL := startTestServer(t, hub, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?gameId=msg-test", nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return hub.ClientCount("msg-test") == 1 })

	hub.Publish(testEvent("msg-test", session.EventJoined, 2))
	hub.Publish(testEvent("msg-test", session.EventRemoved, 2))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	for _, want := range []session.EventType{session.EventJoined, session.EventRemoved} {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read WebSocket message: %v", err)
		}
		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if message.Event != want {
			t.Errorf("Expected event %s, got %s", want, message.Event)
		}
		if message.Entry == nil || message.Entry.Message != "test entry" {
			t.Errorf("Expected log entry in message, got %+v", message.Entry)
		}
	}

	// The server closes the connection after the terminal event
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("Expected normal closure, got %v", err)
	}
}

func TestWebSocketRegistryIntegration(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	registry := session.NewRegistry(session.WithListener(hub.Publish))
	defer registry.Close(context.Background())

	if _, err := registry.Create("wired"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, wsURL := startTestServer(t, hub, nil)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?gameId=wired", nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.ClientCount("wired") == 1 })

	if _, err := registry.Join("wired"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	if !strings.Contains(string(data), `"event":"joined"`) || !strings.Contains(string(data), `"players":2`) {
		t.Errorf("Unexpected message: %s", data)
	}
}

func TestWebSocketEndedBeforeRegistration(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	registry := session.NewRegistry(session.WithListener(hub.Publish))
	defer registry.Close(context.Background())

	snap, err := registry.Create("gone")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	// Removed after the caller looked it up, before the hub registers
	if err := registry.Remove("gone"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	_, wsURL := startTestServer(t, hub, func() bool {
		current, err := registry.Get("gone")
		return err == nil && current.Generation == snap.Generation
	})
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?gameId=gone", nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("Expected normal closure, got %v", err)
	}
	if n := hub.ClientCount("gone"); n != 0 {
		t.Errorf("Expected no subscribers for ended game ID, got %d", n)
	}

	// A new lifecycle of the same id does not reach the closed subscription
	if _, err := registry.Create("gone"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if n := hub.ClientCount("gone"); n != 0 {
		t.Errorf("Expected no subscribers after re-create, got %d", n)
	}
}

func TestMessageCarriesSequence(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	_, wsURL := startTestServer(t, hub, nil)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?gameId=seq", nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.ClientCount("seq") == 1 })

	ev := testEvent("seq", session.EventJoined, 2)
	ev.Seq = 42
	hub.Publish(ev)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var message Message
	if err := conn.ReadJSON(&message); err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	if message.Seq != 42 {
		t.Errorf("Expected seq 42, got %d", message.Seq)
	}
}
