package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"sciencebindu-backend/internal/middleware"
)

func newTestHub(t *testing.T) (*httptest.Server, *redis.Client, *middleware.JWTAuth, *Hub) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	auth := middleware.NewJWTAuth("test-secret")
	hub := NewHub(client, auth, "*")
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(srv.Close)
	return srv, client, auth, hub
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
}

func TestHub_RejectsMissingOrBadToken(t *testing.T) {
	srv, _, _, _ := newTestHub(t)

	for _, token := range []string{"", "garbage"} {
		_, resp, err := gws.DefaultDialer.Dial(wsURL(srv, token), nil)
		if err == nil {
			t.Fatalf("token %q: dial succeeded", token)
		}
		if resp == nil || resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("token %q: resp = %v", token, resp)
		}
	}
}

func TestHub_FansOutUserUpdates(t *testing.T) {
	srv, client, auth, hub := newTestHub(t)
	userID := uuid.New()
	token, _ := auth.GenerateAccessToken(userID, "a@b.com")

	conn, _, err := gws.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		subs, _ := client.PubSubNumSub(context.Background(), UpdatesChannel(userID)).Result()
		if subs[UpdatesChannel(userID)] == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ConnectedUsers() != 1 {
		t.Fatalf("connected users = %d, want 1", hub.ConnectedUsers())
	}

	payload := `{"type":"exam_state","payload":{"state":"ready"}}`
	if err := client.Publish(context.Background(), UpdatesChannel(userID), payload).Err(); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if string(msg) != payload {
		t.Fatalf("message = %s", msg)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.ConnectedUsers() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ConnectedUsers() != 0 {
		t.Fatalf("connection not unregistered after close")
	}
}
