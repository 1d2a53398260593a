//go:build integration
// +build integration

package integration

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	wsmsg "github.com/gokatarajesh/riddle-gift/pkg/http/ws"
)

func TestWebSocketStateSync(t *testing.T) {
	player, _ := createSession(t, "")

	tabA := dialGameWS(t, player.Token)
	defer tabA.Close()
	tabB := dialGameWS(t, player.Token)
	defer tabB.Close()

	initial := waitForType(t, tabA, wsmsg.TypeState, 5*time.Second)
	waitForType(t, tabB, wsmsg.TypeState, 5*time.Second)

	var view gameView
	if err := json.Unmarshal(initial.Payload, &view); err != nil {
		t.Fatalf("decode state payload: %v", err)
	}
	if view.PlayerID != player.PlayerID {
		t.Fatalf("state for the wrong player: %s", view.PlayerID)
	}

	send(t, tabA, wsmsg.Message{Type: wsmsg.TypeReset, RequestID: "r1"})
	waitForType(t, tabA, wsmsg.TypeState, 5*time.Second)
	waitForType(t, tabB, wsmsg.TypeState, 5*time.Second)

	send(t, tabB, wsmsg.Message{Type: wsmsg.TypePing, RequestID: "p1"})
	pong := waitForType(t, tabB, wsmsg.TypePong, 5*time.Second)
	if pong.RequestID != "p1" {
		t.Fatalf("pong lost its request id: %q", pong.RequestID)
	}
}

func dialGameWS(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	wsBase := envOrDefault("INTEGRATION_WS_URL", strings.Replace(baseURL(), "http", "ws", 1)+"/ws/game")
	u, err := url.Parse(wsBase)
	if err != nil {
		t.Fatalf("invalid WS url: %v", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg wsmsg.Message) {
	t.Helper()

	conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("failed to send %s: %v", msg.Type, err)
	}
}

func waitForType(t *testing.T, conn *websocket.Conn, msgType string, timeout time.Duration) wsmsg.Message {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		var msg wsmsg.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read websocket message: %v", err)
		}
		if msg.Type == msgType {
			return msg
		}
	}
	t.Fatalf("timed out waiting for %s", msgType)
	return wsmsg.Message{}
}
