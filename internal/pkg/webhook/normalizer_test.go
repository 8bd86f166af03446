package webhook

import (
	"WhatsInbox/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inboundPayload = `{
  "payload_type": "whatsapp_webhook",
  "_id": "conv1-msg1-user",
  "metaData": {
    "entry": [{
      "changes": [{
        "field": "messages",
        "value": {
          "messaging_product": "whatsapp",
          "metadata": {"display_phone_number": "918329446654", "phone_number_id": "629305560276479"},
          "contacts": [{"profile": {"name": "Ravi Kumar"}, "wa_id": "919937320320"}],
          "messages": [{
            "from": "919937320320",
            "id": "wamid.HBgMOTE5OTY3NTc4NzIwFQIAEhggMTIzQURFRjEyMzQ1Njc4OTA=",
            "timestamp": "1754400000",
            "text": {"body": "Hi, I'd like to know more about your services."},
            "type": "text"
          }]
        }
      }],
      "id": "30164062719905277"
    }]
  }
}`

const outboundPayload = `{
  "metaData": {
    "entry": [{
      "changes": [{
        "field": "messages",
        "value": {
          "contacts": [{"profile": {"name": "Ravi Kumar"}, "wa_id": "919937320320"}],
          "messages": [{
            "from": "918329446654",
            "id": "wamid.out1",
            "timestamp": 1754400020,
            "type": "image",
            "image": {"caption": "brochure"}
          }]
        }
      }]
    }]
  }
}`

const statusPayload = `{
  "metaData": {
    "entry": [{
      "changes": [{
        "field": "messages",
        "value": {
          "statuses": [
            {"id": "wamid.out1", "meta_msg_id": "wamid.out1", "status": "read", "timestamp": "1754400040", "recipient_id": "919937320320"},
            {"id": "wamid.out2", "status": "seen"},
            {"status": "delivered"}
          ]
        }
      }]
    }]
  }
}`

func TestNormalizeInboundMessage(t *testing.T) {
	batch, err := Normalize([]byte(inboundPayload))
	require.NoError(t, err)
	require.Len(t, batch.Intents, 1)
	assert.Zero(t, batch.Dropped)

	msg, ok := batch.Intents[0].(UpsertMessage)
	require.True(t, ok)
	assert.Equal(t, "wamid.HBgMOTE5OTY3NTc4NzIwFQIAEhggMTIzQURFRjEyMzQ1Njc4OTA=", msg.ProviderID)
	assert.Equal(t, msg.ProviderID, msg.MetaID)
	assert.Equal(t, "919937320320", msg.From)
	assert.Equal(t, "Ravi Kumar", msg.ContactNameHint)
	assert.Equal(t, "Hi, I'd like to know more about your services.", msg.Body)
	assert.Equal(t, model.MediaText, msg.MediaType)
	assert.EqualValues(t, 1754400000, msg.OccurredAtEpochSeconds)
}

func TestNormalizeOutboundFillsCounterpartFromContacts(t *testing.T) {
	batch, err := Normalize([]byte(outboundPayload))
	require.NoError(t, err)
	require.Len(t, batch.Intents, 1)

	msg := batch.Intents[0].(UpsertMessage)
	assert.Equal(t, "918329446654", msg.From)
	assert.Equal(t, "919937320320", msg.To)
	assert.Equal(t, "Ravi Kumar", msg.ContactNameHint)
	assert.Equal(t, "brochure", msg.Body)
	assert.Equal(t, model.MediaImage, msg.MediaType)
	assert.EqualValues(t, 1754400020, msg.OccurredAtEpochSeconds)
}

func TestNormalizeStatuses(t *testing.T) {
	batch, err := Normalize([]byte(statusPayload))
	require.NoError(t, err)
	require.Len(t, batch.Intents, 1)
	assert.Equal(t, 2, batch.Dropped)

	st := batch.Intents[0].(UpdateStatus)
	assert.Equal(t, "wamid.out1", st.ProviderID)
	assert.Equal(t, "wamid.out1", st.MetaID)
	assert.Equal(t, model.StatusRead, st.NewStatus)
	assert.EqualValues(t, 1754400040, st.OccurredAtEpochSeconds)
}

func TestNormalizeMessagesBeforeStatuses(t *testing.T) {
	payload := `{"metaData":{"entry":[{"changes":[{"field":"messages","value":{
		"statuses":[{"id":"wamid.a","status":"delivered"}],
		"messages":[{"id":"wamid.b","from":"1","type":"text","text":{"body":"x"}}]
	}}]}]}}`

	batch, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, batch.Intents, 2)
	assert.IsType(t, UpsertMessage{}, batch.Intents[0])
	assert.IsType(t, UpdateStatus{}, batch.Intents[1])
}

func TestNormalizeDegradesPerItem(t *testing.T) {
	payload := `{"metaData":{"entry":[
		"not-an-object",
		{"changes":[
			{"field":"statuses_only","value":{"messages":[{"id":"ignored"}]}},
			{"field":"messages","value":{"messages":"broken"}},
			{"field":"messages","value":{"messages":[
				{"from":"1","text":{"body":"no id"}},
				{"id":"wamid.ok","from":"1","timestamp":"garbage","type":"sticker"}
			]}}
		]}
	]}}`

	batch, err := Normalize([]byte(payload))
	require.NoError(t, err)
	require.Len(t, batch.Intents, 1)
	// 非法 entry、非法 change、缺少 id 的消息各丢弃一条
	assert.Equal(t, 3, batch.Dropped)

	msg := batch.Intents[0].(UpsertMessage)
	assert.Equal(t, "Media message", msg.Body)
	assert.Equal(t, model.MediaText, msg.MediaType)
	assert.Zero(t, msg.OccurredAtEpochSeconds)
	assert.Empty(t, msg.ContactNameHint)
}

func TestNormalizeMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `{{`,
		"array":         `[]`,
		"no metaData":   `{"entry":[]}`,
		"no entry":      `{"metaData":{}}`,
		"entry not arr": `{"metaData":{"entry":{}}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize([]byte(body))
			assert.ErrorIs(t, err, ErrMalformedPayload)
		})
	}
}

func TestNormalizeEmptyEntry(t *testing.T) {
	batch, err := Normalize([]byte(`{"metaData":{"entry":[]}}`))
	require.NoError(t, err)
	assert.Empty(t, batch.Intents)
}

func TestNormalizeKeepsMessagesWithWronglyTypedFields(t *testing.T) {
	payload := `{"metaData":{"entry":[{"changes":[{"field":"messages","value":{"messages":[
		{"id":"m1","from":"919937320320","timestamp":"1754400000","type":"text","text":"Hi"},
		{"id":"m2","from":"919937320320","timestamp":"1754400001","type":"image","image":"x"},
		{"id":"m3","from":919937320320,"timestamp":1754400002,"type":"text","text":{"body":"numeric sender"}}
	]}}]}]}}`

	batch, err := Normalize([]byte(payload))
	require.NoError(t, err)
	assert.Zero(t, batch.Dropped)
	require.Len(t, batch.Intents, 3)

	m1 := batch.Intents[0].(UpsertMessage)
	assert.Equal(t, "m1", m1.ProviderID)
	assert.Equal(t, "Media message", m1.Body)

	m2 := batch.Intents[1].(UpsertMessage)
	assert.Equal(t, "Media message", m2.Body)
	assert.Equal(t, model.MediaImage, m2.MediaType)

	m3 := batch.Intents[2].(UpsertMessage)
	assert.Equal(t, "919937320320", m3.From)
	assert.Equal(t, "numeric sender", m3.Body)
	assert.EqualValues(t, 1754400002, m3.OccurredAtEpochSeconds)
}

func TestNormalizeBadSiblingListKeepsOthers(t *testing.T) {
	payload := `{"metaData":{"entry":[{"changes":[{"field":"messages","value":{
		"contacts":{"wa_id":"919937320320"},
		"messages":[{"id":"m1","from":"919937320320","type":"text","text":{"body":"hello"}}],
		"statuses":[{"id":"m0","status":"delivered"}]
	}}]}]}}`

	batch, err := Normalize([]byte(payload))
	require.NoError(t, err)
	assert.Zero(t, batch.Dropped)
	require.Len(t, batch.Intents, 2)

	msg := batch.Intents[0].(UpsertMessage)
	assert.Equal(t, "m1", msg.ProviderID)
	assert.Empty(t, msg.ContactNameHint)
	assert.Equal(t, "m0", batch.Intents[1].(UpdateStatus).ProviderID)
}

func TestNormalizeBrokenMessagesListKeepsStatuses(t *testing.T) {
	payload := `{"metaData":{"entry":[{"changes":[{"field":"messages","value":{
		"messages":{"id":"m1"},
		"statuses":[{"meta_msg_id":"m0","status":"read","timestamp":"bad"}, {"id":7}]
	}}]}]}}`

	batch, err := Normalize([]byte(payload))
	require.NoError(t, err)
	// messages 非数组记一次丢弃；数字 id 的状态缺少 status 也被丢弃
	assert.Equal(t, 2, batch.Dropped)
	require.Len(t, batch.Intents, 1)

	st := batch.Intents[0].(UpdateStatus)
	assert.Empty(t, st.ProviderID)
	assert.Equal(t, "m0", st.MetaID)
	assert.Equal(t, model.StatusRead, st.NewStatus)
	assert.Zero(t, st.OccurredAtEpochSeconds)
}
