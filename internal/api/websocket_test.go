package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, s *Server, header http.Header) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial failed (status %d): %v", status, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, srv
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Clients() = %d, want %d", h.Clients(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketParse(t *testing.T) {
	s := newTestServer(t, Config{})
	conn, _ := dialWS(t, s, nil)

	inputs := []string{"the <wall/> cat", "<wall/> bad", "a b"}
	for _, in := range inputs {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(in)); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	for i, in := range inputs {
		msg := readMessage(t, conn)
		if msg.Type != MessageResult || msg.Result == nil {
			t.Fatalf("message %d = %+v", i, msg)
		}
		if msg.Result.Line != i+1 || msg.Result.Input != in {
			t.Errorf("result %d = line %d %q", i, msg.Result.Line, msg.Result.Input)
		}
		if rejected := msg.Result.Error != nil; rejected != (i == 1) {
			t.Errorf("result %d rejected = %v", i, rejected)
		}
	}
}

func TestWebSocketBinaryFrame(t *testing.T) {
	s := newTestServer(t, Config{})
	conn, _ := dialWS(t, s, nil)

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2}); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.Type != MessageError {
		t.Errorf("message = %+v, want error", msg)
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	s := newTestServer(t, Config{})
	conn, srv := dialWS(t, s, nil)
	waitForClients(t, s.Hub(), 1)

	body := strings.NewReader(`{"lines":["a","<wall/> b"]}`)
	resp, err := http.Post(srv.URL+"/parse", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	msg := readMessage(t, conn)
	if msg.Type != MessageBatchComplete || msg.Summary == nil || msg.Summary.Total != 2 || msg.Summary.Rejected != 1 {
		t.Errorf("broadcast = %+v", msg)
	}

	cfg := s.proc.Config().Clone()
	cfg.Reordering.MaxReorderDistance = 2
	s.Reload("test.yaml", cfg)
	msg = readMessage(t, conn)
	if msg.Type != MessageConfigReloaded || msg.Fingerprint != cfg.Fingerprint() {
		t.Errorf("reload broadcast = %+v", msg)
	}
}

func TestWebSocketOrigin(t *testing.T) {
	s := newTestServer(t, Config{AllowedOrigins: []string{"https://ok.example"}})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		t.Fatal("dial from a foreign origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://ok.example"}})
	if err != nil {
		t.Fatalf("dial from an allowed origin failed: %v", err)
	}
	conn.Close()
}

func TestHubDisconnectsOnClose(t *testing.T) {
	s := newTestServer(t, Config{})
	conn, _ := dialWS(t, s, nil)
	waitForClients(t, s.Hub(), 1)

	s.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("read after Close = %v, want normal closure", err)
	}
	if n := s.Hub().Clients(); n != 0 {
		t.Errorf("Clients() after Close = %d", n)
	}
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	h := NewHub()
	for i := 0; i < sendBuffer+10; i++ {
		h.Broadcast(Message{Type: MessageError})
	}
	if len(h.broadcast) != sendBuffer {
		t.Errorf("queued %d messages, want %d", len(h.broadcast), sendBuffer)
	}
}
