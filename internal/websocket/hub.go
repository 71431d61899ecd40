package websocket

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

type tokenParser interface {
	ParseAccessToken(tokenStr string) (uuid.UUID, error)
}

// client is one open socket. Only writePump writes to conn.
type client struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
}

type userFeed struct {
	clients map[*client]struct{}
	cancel  context.CancelFunc
}

// Hub fans out each user's Redis "user_updates:<id>" channel to every open
// socket of that user. One subscription exists per connected user.
type Hub struct {
	mu          sync.Mutex
	feeds       map[uuid.UUID]*userFeed
	redisClient *redis.Client
	auth        tokenParser
	upgrader    websocket.Upgrader
}

func NewHub(redisClient *redis.Client, auth tokenParser, allowedOrigin string) *Hub {
	return &Hub{
		feeds:       make(map[uuid.UUID]*userFeed),
		redisClient: redisClient,
		auth:        auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
	}
}

func UpdatesChannel(userID uuid.UUID) string {
	return "user_updates:" + userID.String()
}

// HandleWebSocket authenticates with the ?token= access token; browsers cannot
// set an Authorization header on the upgrade request.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.ParseAccessToken(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	<-h.register(c)

	go c.writePump()
	go h.readPump(c)
}

// register returns a channel closed once the user's subscription is live.
func (h *Hub) register(c *client) <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()

	ready := make(chan struct{})
	feed, ok := h.feeds[c.userID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		feed = &userFeed{clients: make(map[*client]struct{}), cancel: cancel}
		h.feeds[c.userID] = feed
		go h.subscribe(ctx, c.userID, ready)
	} else {
		close(ready)
	}
	feed.clients[c] = struct{}{}

	log.Printf("WebSocket connected: user %s (sockets: %d)", c.userID, len(feed.clients))
	return ready
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	feed, ok := h.feeds[c.userID]
	if !ok {
		return
	}
	if _, ok := feed.clients[c]; !ok {
		return
	}
	delete(feed.clients, c)
	close(c.send)

	if len(feed.clients) == 0 {
		feed.cancel()
		delete(h.feeds, c.userID)
	}
	log.Printf("WebSocket disconnected: user %s", c.userID)
}

func (h *Hub) subscribe(ctx context.Context, userID uuid.UUID, ready chan<- struct{}) {
	pubsub := h.redisClient.Subscribe(ctx, UpdatesChannel(userID))
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("WebSocket: subscribe failed for user %s: %v", userID, err)
	}
	close(ready)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(userID, []byte(msg.Payload))
		}
	}
}

// broadcast queues data on every socket of the user. A socket whose buffer is
// full is dropped rather than stalling the feed.
func (h *Hub) broadcast(userID uuid.UUID, data []byte) {
	h.mu.Lock()
	feed, ok := h.feeds[userID]
	var slow []*client
	if ok {
		for c := range feed.clients {
			select {
			case c.send <- data:
			default:
				slow = append(slow, c)
			}
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		log.Printf("WebSocket: dropping slow socket for user %s", userID)
		h.unregister(c)
	}
}

// readPump discards client frames; it exists to observe pongs and disconnects.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("WebSocket write failed for user %s: %v", c.userID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ConnectedUsers reports how many users currently hold at least one socket.
func (h *Hub) ConnectedUsers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.feeds)
}
