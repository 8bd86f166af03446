package handler

import (
	"WhatsInbox/internal/api/dto"
	"WhatsInbox/internal/pkg/broadcast"
	log "log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	maxFrameSize = 4096
)

type WsHandler struct {
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
}

// NewWsHandler allowedOrigin 为空或 * 时不校验来源
func NewWsHandler(hub *broadcast.Hub, allowedOrigin string) *WsHandler {
	return &WsHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
	}
}

// Connect 建立实时连接，客户端通过 join/leave 指令订阅会话
func (s *WsHandler) Connect(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.ErrorContext(c.Request.Context(), "WS upgrade failed", "err", err)
		return
	}

	client := broadcast.NewClient(uuid.NewString(), broadcast.DefaultClientBuffer)
	log.Info("WS connected", "client", client.ID, "remote", c.ClientIP())

	go s.writePump(conn, client)
	s.readPump(conn, client)

	log.Info("WS disconnected", "client", client.ID)
}

// readPump 返回时移除客户端，事件通道关闭后写循环随之退出
func (s *WsHandler) readPump(conn *websocket.Conn, client *broadcast.Client) {
	defer s.hub.Remove(client)

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("WS read failed", "client", client.ID, "err", err)
			}
			return
		}

		var cmd dto.WsCommand
		if err = json.Unmarshal(data, &cmd); err != nil {
			log.Debug("WS invalid frame", "client", client.ID, "err", err)
			continue
		}

		switch cmd.Action {
		case dto.WsActionJoin:
			s.hub.Subscribe(cmd.WaID, client)
			log.Debug("WS joined conversation", "client", client.ID, "wa_id", cmd.WaID)
		case dto.WsActionLeave:
			s.hub.Unsubscribe(cmd.WaID, client)
			log.Debug("WS left conversation", "client", client.ID, "wa_id", cmd.WaID)
		default:
			log.Debug("WS unknown action", "client", client.ID, "action", cmd.Action)
		}
	}
}

func (s *WsHandler) writePump(conn *websocket.Conn, client *broadcast.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case ev, ok := <-client.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				log.Error("WS encode event failed", "client", client.ID, "type", ev.Type, "err", err)
				continue
			}
			if err = conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn("WS push failed", "client", client.ID, "err", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
