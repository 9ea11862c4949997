package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/Strob0t/promptbox/internal/domain/fork"
	"github.com/Strob0t/promptbox/internal/service"
)

func startHub(t *testing.T) (*Hub, *service.FanoutService, string) {
	t.Helper()
	fanout := service.NewFanoutService(16)
	t.Cleanup(fanout.Close)

	hub := NewHub(fanout)
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)
	return hub, fanout, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.CloseNow() })
	return c
}

func readMessage(t *testing.T, c *websocket.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubBroadcastEventNoConnections(t *testing.T) {
	hub := NewHub(nil)

	// BroadcastEvent with no connections should not panic.
	hub.BroadcastEvent(context.Background(), "agents_reloaded", map[string]int{"count": 3})
}

func TestHubBroadcastEventMarshalError(t *testing.T) {
	hub := NewHub(nil)

	// A channel cannot be marshaled to JSON; should log error, not panic.
	hub.BroadcastEvent(context.Background(), "bad", make(chan int))
}

func TestHubStreamsForkEvents(t *testing.T) {
	hub, fanout, url := startHub(t)
	c := dial(t, url)
	waitFor(t, func() bool { return hub.ConnectionCount() == 1 && fanout.SubscriberCount() == 1 })

	fanout.Publish(fork.UpdateEvent(fork.Fork{ID: "abc12345", Status: fork.StatusRunning, Output: []string{}}))
	fanout.Publish(fork.OutputEvent("abc12345", "> Fork completed"))

	up := readMessage(t, c)
	if up.Type != "fork_update" || up.ForkID != "abc12345" {
		t.Fatalf("unexpected update envelope %+v", up)
	}
	var f fork.Fork
	if err := json.Unmarshal(up.Data, &f); err != nil {
		t.Fatal(err)
	}
	if f.Status != fork.StatusRunning {
		t.Fatalf("expected running in payload, got %s", f.Status)
	}

	out := readMessage(t, c)
	if out.Type != "fork_output" {
		t.Fatalf("expected fork_output, got %s", out.Type)
	}
	var od fork.OutputData
	if err := json.Unmarshal(out.Data, &od); err != nil {
		t.Fatal(err)
	}
	if od.ForkID != "abc12345" || od.Output != "> Fork completed" {
		t.Fatalf("unexpected output payload %+v", od)
	}
}

func TestHubPingPong(t *testing.T) {
	_, _, url := startHub(t)
	c := dial(t, url)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatal(err)
	}

	if msg := readMessage(t, c); msg.Type != TypePong {
		t.Fatalf("expected pong, got %+v", msg)
	}
}

func TestHubIgnoresGarbage(t *testing.T) {
	_, _, url := startHub(t)
	c := dial(t, url)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.Write(ctx, websocket.MessageText, []byte(`not json`))
	_ = c.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`))

	if msg := readMessage(t, c); msg.Type != TypePong {
		t.Fatalf("expected connection to survive garbage, got %+v", msg)
	}
}

func TestHubBroadcastEvent(t *testing.T) {
	hub, _, url := startHub(t)
	a := dial(t, url)
	b := dial(t, url)
	waitFor(t, func() bool { return hub.ConnectionCount() == 2 })

	hub.BroadcastEvent(context.Background(), "agents_reloaded", map[string]int{"count": 4})

	for _, c := range []*websocket.Conn{a, b} {
		msg := readMessage(t, c)
		if msg.Type != "agents_reloaded" || string(msg.Data) != `{"count":4}` {
			t.Fatalf("unexpected broadcast %+v", msg)
		}
	}
}

func TestHubDisconnectUnsubscribes(t *testing.T) {
	hub, fanout, url := startHub(t)
	c := dial(t, url)
	waitFor(t, func() bool { return fanout.SubscriberCount() == 1 })

	_ = c.Close(websocket.StatusNormalClosure, "bye")

	waitFor(t, func() bool { return hub.ConnectionCount() == 0 && fanout.SubscriberCount() == 0 })

	// Publishing after the client left must not panic or block.
	fanout.Publish(fork.OutputEvent("abc", "line"))
}

func TestHubCloseAll(t *testing.T) {
	hub, fanout, url := startHub(t)
	dial(t, url)
	dial(t, url)
	waitFor(t, func() bool { return hub.ConnectionCount() == 2 })

	hub.CloseAll()

	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected no connections, got %d", hub.ConnectionCount())
	}
	waitFor(t, func() bool { return fanout.SubscriberCount() == 0 })
}
