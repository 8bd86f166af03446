package dto

const (
	WsActionJoin  = "join-conversation"
	WsActionLeave = "leave-conversation"
)

// WsCommand 客户端上行帧
type WsCommand struct {
	Action string `json:"action"`
	WaID   string `json:"wa_id"`
}
