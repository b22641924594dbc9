package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"wayfarer.game/internal/protocol"
	"wayfarer.game/internal/sim/catalogs"
	"wayfarer.game/internal/sim/session"
	"wayfarer.game/internal/sim/tuning"
)

func startServer(t *testing.T) string {
	t.Helper()
	url, _, _ := startServerRuntime(t)
	return url
}

func startServerRuntime(t *testing.T) (string, *session.Runtime, <-chan error) {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	logger := log.New(io.Discard, "", 0)
	rt := session.NewRuntime(session.Config{Tuning: tuning.Defaults(), Catalogs: cats}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan error, 1)
	go func() { ran <- rt.Run(ctx) }()

	srv := httptest.NewServer(NewServer(rt, cats.Digests(), logger).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http"), rt, ran
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func hello(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	send(t, conn, protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, PlayerName: "ada"})
	w := recv(t, conn)
	if w["type"] != protocol.TypeWelcome {
		t.Fatalf("expected WELCOME, got %v", w["type"])
	}
	return w
}

func TestHelloAcceptArrive(t *testing.T) {
	conn := dial(t, startServer(t))
	w := hello(t, conn)
	if w["session_id"] == "" {
		t.Fatalf("missing session id")
	}
	state := w["state"].(map[string]any)
	if _, ok := state["offers"]; !ok {
		t.Fatalf("welcome state has no offers: %v", state)
	}
	if _, ok := w["catalogs"].(map[string]any)["contracts"]; !ok {
		t.Fatalf("welcome has no contract digest")
	}

	send(t, conn, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: "a1", Action: protocol.ActAccept, ContractID: "c_scout_ironhold"})
	res := recv(t, conn)
	if res["type"] != protocol.TypeActionResult || res["ref"] != "a1" || res["ok"] != true {
		t.Fatalf("unexpected result: %v", res)
	}
	st := recv(t, conn)
	if st["type"] != protocol.TypeState {
		t.Fatalf("expected STATE, got %v", st["type"])
	}
	active := st["state"].(map[string]any)["active"].([]any)
	if len(active) != 1 {
		t.Fatalf("expected one active contract, got %v", active)
	}

	send(t, conn, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: "a2", Action: protocol.ActArrive, LocationID: "ironhold"})
	res = recv(t, conn)
	if res["ok"] != true {
		t.Fatalf("arrive failed: %v", res)
	}
	if done, _ := res["completed"].([]any); len(done) != 1 || done[0] != "c_scout_ironhold" {
		t.Fatalf("expected completion, got %v", res["completed"])
	}
	recv(t, conn)
}

func TestSpendOverBudgetIsReported(t *testing.T) {
	conn := dial(t, startServer(t))
	hello(t, conn)

	send(t, conn, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: "s1", Action: protocol.ActSpend, Blocks: 9})
	res := recv(t, conn)
	if res["ok"] != false || res["code"] != protocol.ErrNoBudget {
		t.Fatalf("unexpected result: %v", res)
	}
	msg, _ := res["message"].(string)
	if msg == "" || strings.ContainsAny(msg, "0123456789") || strings.Contains(msg, "used") {
		t.Fatalf("message leaks block counts: %q", msg)
	}
	recv(t, conn)

	// The connection stays usable.
	send(t, conn, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: "s2", Action: protocol.ActRest})
	if res := recv(t, conn); res["ok"] != true {
		t.Fatalf("rest failed: %v", res)
	}
}

func TestMalformedActIsRejected(t *testing.T) {
	conn := dial(t, startServer(t))
	hello(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ACT","protocol_version":"1.0","id":"x","action":"ACCEPT"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	res := recv(t, conn)
	if res["code"] != protocol.ErrMalformed || res["ref"] != "x" {
		t.Fatalf("unexpected result: %v", res)
	}

	send(t, conn, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: "0.1", ID: "y", Action: protocol.ActRest})
	if res := recv(t, conn); res["code"] != protocol.ErrProtoBadRequest {
		t.Fatalf("unexpected result: %v", res)
	}
}

func TestHandshakeRequiresHello(t *testing.T) {
	conn := dial(t, startServer(t))
	send(t, conn, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: "z", Action: protocol.ActRest})
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy close, got %v", err)
	}
}

func TestStoppedRuntimeReportsUnavailable(t *testing.T) {
	url, rt, ran := startServerRuntime(t)
	conn := dial(t, url)
	hello(t, conn)
	rt.Stop()
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("runtime did not stop")
	}

	send(t, conn, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ID: "u1", Action: protocol.ActRest})
	res := recv(t, conn)
	if res["ref"] != "u1" || res["code"] != protocol.ErrInternal || res["message"] != "session unavailable" {
		t.Fatalf("unexpected result: %v", res)
	}
}
