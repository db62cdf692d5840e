package ws

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/emandor/pbe_journey/internal/httpx"
	"github.com/emandor/pbe_journey/internal/model"
	"github.com/emandor/pbe_journey/internal/telemetry"
)

type Action string

const (
	ActionPing Action = "ping"
)

type Event string

const (
	EventAchievementUnlocked Event = "achievement.unlocked"
	EventStatsUpdated        Event = "stats.updated"
	EventPong                Event = "pong"
)

type PayloadEvent struct {
	Event Event `json:"event"`
	Data  any   `json:"data,omitempty"`
}

type ClientMessage struct {
	Action Action `json:"action"`
}

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v any) error
}

// client serialises writes; a websocket connection allows one writer.
type client struct {
	mu   sync.Mutex
	conn Conn
}

func (c *client) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub fans out per-user notifications to every connection the user has open.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]*client
}

func NewHub() *Hub {
	return &Hub{rooms: map[string]map[Conn]*client{}}
}

func userRoom(userID string) string { return "user." + userID }

func (h *Hub) Join(userID string, c Conn) {
	room := userRoom(userID)
	h.mu.Lock()
	if h.rooms[room] == nil {
		h.rooms[room] = map[Conn]*client{}
	}
	h.rooms[room][c] = &client{conn: c}
	h.mu.Unlock()
}

func (h *Hub) Leave(userID string, c Conn) {
	room := userRoom(userID)
	h.mu.Lock()
	delete(h.rooms[room], c)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
	h.mu.Unlock()
}

func (h *Hub) publish(userID string, pl PayloadEvent) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[userRoom(userID)]))
	for _, c := range h.rooms[userRoom(userID)] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(pl); err != nil {
			log := telemetry.Component("ws")
			log.Debug().Err(err).Str("user_id", userID).Str("event", string(pl.Event)).Msg("ws_write_failed")
		}
	}
}

func (h *Hub) AchievementUnlocked(userID string, a model.Achievement) {
	h.publish(userID, PayloadEvent{Event: EventAchievementUnlocked, Data: a})
}

func (h *Hub) StatsUpdated(userID string, st model.UserStats) {
	h.publish(userID, PayloadEvent{Event: EventStatsUpdated, Data: st})
}

// Handler serves an authenticated websocket. The session middleware must
// have stored the user id in locals before the upgrade.
func (h *Hub) Handler() func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		userID, _ := c.Locals(httpx.UserIDKey).(string)
		tlog := telemetry.Component("ws").With().Str("user_id", userID).Logger()
		if userID == "" {
			_ = c.Close()
			return
		}
		tlog.Info().Msg("ws_connected")

		h.Join(userID, c)
		defer func() {
			h.Leave(userID, c)
			_ = c.Close()
			tlog.Info().Msg("ws_disconnected")
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}
			var cm ClientMessage
			if err := json.Unmarshal(msg, &cm); err != nil {
				continue
			}
			if cm.Action == ActionPing {
				h.reply(userID, c, PayloadEvent{Event: EventPong})
			}
		}
	}
}

func (h *Hub) reply(userID string, c Conn, pl PayloadEvent) {
	h.mu.RLock()
	cl := h.rooms[userRoom(userID)][c]
	h.mu.RUnlock()
	if cl != nil {
		_ = cl.write(pl)
	}
}
