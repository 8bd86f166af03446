package webhook

import (
	"WhatsInbox/internal/model"
	"errors"
	log "log/slog"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ErrMalformedPayload 缺少 metaData.entry 顶层结构，整批拒绝
var ErrMalformedPayload = errors.New("invalid payload structure")

const (
	changeFieldMessages = "messages"
	mediaPlaceholder    = "Media message"
)

var mediaKeys = []string{"image", "video", "document", "audio"}

type envelope struct {
	MetaData *struct {
		Entry []json.RawMessage `json:"entry"`
	} `json:"metaData"`
}

// rawObject 逐字段解码，单个字段类型不符只视为缺失
type rawObject map[string]json.RawMessage

func decodeObject(raw json.RawMessage) (rawObject, bool) {
	var obj rawObject
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// str 字符串字段；数字按字面返回，其余类型视为缺失
func (o rawObject) str(key string) string {
	raw, ok := o[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func (o rawObject) object(key string) rawObject {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	obj, _ := decodeObject(raw)
	return obj
}

// list 字段缺失或为 null 时返回空列表；存在但不是数组时 ok 为 false
func (o rawObject) list(key string) (items []json.RawMessage, ok bool) {
	raw, present := o[key]
	if !present || strings.TrimSpace(string(raw)) == "null" {
		return nil, true
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

// epoch provider 的秒级时间戳，可能是字符串也可能是数字，无法解析时为 0
func (o rawObject) epoch(key string) int64 {
	s := strings.TrimSpace(o.str(key))
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

type contactEntry struct {
	WaID string
	Name string
}

// Normalize 将 webhook 报文解析为有序的指令序列
// 顶层结构缺失返回 ErrMalformedPayload；子记录异常只影响该条记录
func Normalize(raw []byte) (*Batch, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}
	if env.MetaData == nil || env.MetaData.Entry == nil {
		return nil, ErrMalformedPayload
	}

	batch := &Batch{Intents: make([]Intent, 0)}
	for i, rawEntry := range env.MetaData.Entry {
		entry, ok := decodeObject(rawEntry)
		if !ok {
			log.Warn("webhook entry dropped", "entry", i)
			batch.Dropped++
			continue
		}
		changes, ok := entry.list("changes")
		if !ok {
			log.Warn("webhook entry dropped: changes is not a list", "entry", i)
			batch.Dropped++
			continue
		}
		for j, rawChange := range changes {
			change, ok := decodeObject(rawChange)
			if !ok {
				log.Warn("webhook change dropped", "entry", i, "change", j)
				batch.Dropped++
				continue
			}
			if change.str("field") != changeFieldMessages {
				continue
			}
			value := change.object("value")
			if value == nil {
				log.Warn("webhook change dropped: missing value", "entry", i, "change", j)
				batch.Dropped++
				continue
			}
			normalizeValue(value, batch)
		}
	}
	return batch, nil
}

// normalizeValue messages、statuses、contacts 互相独立，某一列表异常不影响其他列表
func normalizeValue(value rawObject, batch *Batch) {
	contacts := decodeContacts(value)

	// 同一 change 内消息先于状态
	messages, ok := value.list("messages")
	if !ok {
		log.Warn("webhook messages dropped: not a list")
		batch.Dropped++
	}
	for _, rawMsg := range messages {
		intent, ok := toUpsertMessage(rawMsg, contacts)
		if !ok {
			batch.Dropped++
			continue
		}
		batch.Intents = append(batch.Intents, intent)
	}

	statuses, ok := value.list("statuses")
	if !ok {
		log.Warn("webhook statuses dropped: not a list")
		batch.Dropped++
	}
	for _, rawStatus := range statuses {
		intent, ok := toUpdateStatus(rawStatus)
		if !ok {
			batch.Dropped++
			continue
		}
		batch.Intents = append(batch.Intents, intent)
	}
}

// decodeContacts contacts 只用于补全对端与联系人名称，异常时忽略
func decodeContacts(value rawObject) []contactEntry {
	rawContacts, ok := value.list("contacts")
	if !ok {
		log.Warn("webhook contacts ignored: not a list")
		return nil
	}
	contacts := make([]contactEntry, 0, len(rawContacts))
	for _, rawContact := range rawContacts {
		c, ok := decodeObject(rawContact)
		if !ok || c.str("wa_id") == "" {
			continue
		}
		contacts = append(contacts, contactEntry{
			WaID: c.str("wa_id"),
			Name: c.object("profile").str("name"),
		})
	}
	return contacts
}

// toUpsertMessage 只有缺少 id 才丢弃，其余字段异常时取默认值
func toUpsertMessage(raw json.RawMessage, contacts []contactEntry) (UpsertMessage, bool) {
	m, ok := decodeObject(raw)
	if !ok {
		log.Warn("webhook message dropped: not an object")
		return UpsertMessage{}, false
	}
	id := m.str("id")
	if id == "" {
		log.Warn("webhook message dropped: missing id", "from", m.str("from"))
		return UpsertMessage{}, false
	}

	from := m.str("from")
	to := m.str("to")
	if to == "" {
		for _, c := range contacts {
			if c.WaID != from {
				to = c.WaID
				break
			}
		}
	}

	return UpsertMessage{
		ProviderID:             id,
		MetaID:                 id,
		From:                   from,
		To:                     to,
		ContactNameHint:        contactName(contacts, from, to),
		Body:                   messageBody(m),
		MediaType:              model.ParseMediaType(m.str("type")),
		OccurredAtEpochSeconds: m.epoch("timestamp"),
	}, true
}

// toUpdateStatus id 与 meta_msg_id 都缺失或状态值未知时丢弃
func toUpdateStatus(raw json.RawMessage) (UpdateStatus, bool) {
	st, ok := decodeObject(raw)
	if !ok {
		log.Warn("webhook status dropped: not an object")
		return UpdateStatus{}, false
	}
	id, metaID := st.str("id"), st.str("meta_msg_id")
	if id == "" && metaID == "" {
		log.Warn("webhook status dropped: missing id", "status", st.str("status"))
		return UpdateStatus{}, false
	}
	status, ok := model.ParseStatus(st.str("status"))
	if !ok {
		log.Warn("webhook status dropped: unknown status", "id", id, "status", st.str("status"))
		return UpdateStatus{}, false
	}

	return UpdateStatus{
		ProviderID:             id,
		MetaID:                 metaID,
		NewStatus:              status,
		OccurredAtEpochSeconds: st.epoch("timestamp"),
	}, true
}

// messageBody 文本优先，其次是任意媒体的说明文字，最后使用占位符
func messageBody(m rawObject) string {
	if body := m.object("text").str("body"); body != "" {
		return body
	}
	if caption := m.str("caption"); caption != "" {
		return caption
	}
	for _, key := range mediaKeys {
		if caption := m.object(key).str("caption"); caption != "" {
			return caption
		}
	}
	return mediaPlaceholder
}

func contactName(contacts []contactEntry, ids ...string) string {
	for _, id := range ids {
		if id == "" {
			continue
		}
		for _, c := range contacts {
			if c.WaID == id && c.Name != "" {
				return c.Name
			}
		}
	}
	return ""
}
