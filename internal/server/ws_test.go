package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type wsEvent struct {
	Event     string `json:"event"`
	ChatID    uint   `json:"chat_id"`
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	return conn
}

func TestSocket_RejectsMissingToken(t *testing.T) {
	r := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial without token should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("dial without token: resp = %+v, want 401", resp)
	}
}

func TestSocket_RelayAndPersistence(t *testing.T) {
	r := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	a := signup(t, r, "alice")
	b := signup(t, r, "bob")

	_, env := doJSON(t, r, http.MethodPost, "/create-chat-individual", a.Token,
		map[string]interface{}{"members": []uint{a.User.ID, b.User.ID}})
	var chat chatPayload
	if err := json.Unmarshal(env.Message, &chat); err != nil {
		t.Fatalf("decode chat: %v", err)
	}

	// Client connections must close before srv.Close, which waits for the
	// hijacked websocket handlers to return.
	connA := dialWS(t, srv, a.Token)
	defer connA.Close()
	connB := dialWS(t, srv, b.Token)
	defer connB.Close()

	join := map[string]interface{}{"event": "joinRoom", "chat_id": chat.ID}
	if err := connA.WriteJSON(join); err != nil {
		t.Fatalf("join(a): %v", err)
	}
	if err := connB.WriteJSON(join); err != nil {
		t.Fatalf("join(b): %v", err)
	}
	// Joins are processed asynchronously by each connection's read loop.
	time.Sleep(200 * time.Millisecond)

	send := map[string]interface{}{"event": "message", "chat_id": chat.ID, "message": "hi"}
	if err := connA.WriteJSON(send); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Bob receives the live broadcast.
	connB.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got wsEvent
	if err := connB.ReadJSON(&got); err != nil {
		t.Fatalf("read(b): %v", err)
	}
	if got.Event != "message" || got.Message != "hi" || got.UserID != a.User.ID || got.Username != "alice" {
		t.Errorf("broadcast = %+v, want message 'hi' from alice", got)
	}

	// The sender never gets its own message back.
	connA.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var echo wsEvent
	if err := connA.ReadJSON(&echo); err == nil {
		t.Errorf("sender received its own broadcast: %+v", echo)
	}

	// After persistence settles, the chat list shows the message with author alice.
	deadline := time.Now().Add(3 * time.Second)
	for {
		_, env = doJSON(t, r, http.MethodGet, "/chats", b.Token, nil)
		var chats []struct {
			ID       uint `json:"id"`
			Messages []struct {
				Message string `json:"message"`
				User    struct {
					ID       uint   `json:"id"`
					Username string `json:"username"`
				} `json:"user"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(env.Message, &chats); err != nil {
			t.Fatalf("decode chats: %v", err)
		}
		if len(chats) == 1 && len(chats[0].Messages) == 1 {
			m := chats[0].Messages[0]
			if m.Message != "hi" || m.User.ID != a.User.ID {
				t.Errorf("persisted message = %+v, want 'hi' by alice", m)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("message never persisted; chats = %s", env.Message)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
