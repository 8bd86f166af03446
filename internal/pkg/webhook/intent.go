package webhook

import "WhatsInbox/internal/model"

// Intent 归一化后的指令，只有 UpsertMessage 与 UpdateStatus 两种
type Intent interface {
	intent()
}

// UpsertMessage 新消息写入指令，方向由调用方根据业务号码推断
type UpsertMessage struct {
	ProviderID             string
	MetaID                 string
	From                   string
	To                     string
	ContactNameHint        string
	Body                   string
	MediaType              model.MediaType
	OccurredAtEpochSeconds int64
}

// UpdateStatus 状态变更指令
type UpdateStatus struct {
	ProviderID             string
	MetaID                 string
	NewStatus              model.Status
	OccurredAtEpochSeconds int64
}

func (UpsertMessage) intent() {}
func (UpdateStatus) intent()  {}

// Batch 一次 webhook 的归一化结果，Dropped 为无法解析而被丢弃的条目数
type Batch struct {
	Intents []Intent
	Dropped int
}
