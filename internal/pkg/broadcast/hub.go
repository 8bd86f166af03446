package broadcast

import (
	log "log/slog"
	"sync"
)

const (
	EventNewMessage   = "new-message"
	EventStatusUpdate = "message-status-update"
)

// DefaultClientBuffer 单个客户端待发送事件的缓冲上限
const DefaultClientBuffer = 64

// Event 推送给订阅方的帧
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Client 一个实时连接，与具体传输无关
type Client struct {
	ID string

	send   chan Event
	subs   map[string]struct{}
	closed bool
}

// NewClient buffer <= 0 时使用 DefaultClientBuffer
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Client{
		ID:   id,
		send: make(chan Event, buffer),
		subs: make(map[string]struct{}),
	}
}

// Events 待发送事件，客户端被移除后关闭
func (c *Client) Events() <-chan Event {
	return c.send
}

// Hub 会话键到订阅客户端集合的映射
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Subscribe 重复订阅无副作用
func (h *Hub) Subscribe(key string, c *Client) {
	if key == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.closed {
		return
	}
	room, ok := h.rooms[key]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[key] = room
	}
	room[c] = struct{}{}
	c.subs[key] = struct{}{}
}

// Unsubscribe 未订阅时无副作用
func (h *Hub) Unsubscribe(key string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave(key, c)
}

// Remove 断开时调用，清理客户端的全部订阅并关闭其事件通道
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.closed {
		return
	}
	for key := range c.subs {
		h.leave(key, c)
	}
	c.closed = true
	close(c.send)
}

func (h *Hub) leave(key string, c *Client) {
	if room, ok := h.rooms[key]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, key)
		}
	}
	delete(c.subs, key)
}

// Publish 只投递给 key 的订阅者，缓冲已满的客户端丢弃该事件，返回成功投递数
func (h *Hub) Publish(key string, ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.rooms[key] {
		select {
		case c.send <- ev:
			delivered++
		default:
			log.Debug("broadcast buffer full, event dropped", "client", c.ID, "key", key, "type", ev.Type)
		}
	}
	return delivered
}

// Subscribers 当前订阅 key 的客户端数量
func (h *Hub) Subscribers(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[key])
}
