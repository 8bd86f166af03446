package handler_test

import (
	"WhatsInbox/internal/api/dto"
	"WhatsInbox/internal/api/handler"
	"WhatsInbox/internal/pkg/broadcast"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWs(t *testing.T, hub *broadcast.Hub) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/ws", handler.NewWsHandler(hub, "http://localhost:5173").Connect)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWsJoinReceivesOnlyItsConversation(t *testing.T) {
	hub := broadcast.NewHub()
	conn := dialWs(t, hub)

	require.NoError(t, conn.WriteJSON(dto.WsCommand{Action: dto.WsActionJoin, WaID: "919937320320"}))
	require.Eventually(t, func() bool { return hub.Subscribers("919937320320") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish("929967673820", broadcast.Event{Type: broadcast.EventNewMessage, Data: "other"})
	hub.Publish("919937320320", broadcast.Event{Type: broadcast.EventStatusUpdate, Data: dto.StatusUpdateDTO{MessageID: "m1", Status: "read"}})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame struct {
		Type string              `json:"type"`
		Data dto.StatusUpdateDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, broadcast.EventStatusUpdate, frame.Type)
	assert.Equal(t, "m1", frame.Data.MessageID)
}

func TestWsLeaveAndDisconnect(t *testing.T) {
	hub := broadcast.NewHub()
	conn := dialWs(t, hub)

	require.NoError(t, conn.WriteJSON(dto.WsCommand{Action: dto.WsActionJoin, WaID: "a"}))
	require.NoError(t, conn.WriteJSON(dto.WsCommand{Action: dto.WsActionJoin, WaID: "b"}))
	require.Eventually(t, func() bool { return hub.Subscribers("b") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(dto.WsCommand{Action: dto.WsActionLeave, WaID: "a"}))
	require.Eventually(t, func() bool { return hub.Subscribers("a") == 0 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool { return hub.Subscribers("b") == 0 }, 2*time.Second, 10*time.Millisecond)
}
