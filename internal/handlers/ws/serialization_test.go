package ws

import (
	"encoding/json"
	"testing"
)

func TestSerializeRoundTrip(t *testing.T) {
	original := &MessageChat{ClientID: "c-1", Content: "hello squad"}

	data, err := Serialize(original)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	decoded, err := Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	chat, ok := decoded.(*MessageChat)
	if !ok {
		t.Fatalf("decoded to %T, want *MessageChat", decoded)
	}
	if chat.ClientID != original.ClientID || chat.Content != original.Content {
		t.Errorf("round trip lost fields: %+v", chat)
	}
}

func TestDeserializeUnknownType(t *testing.T) {
	raw, _ := json.Marshal(SerializedMessage{Type: "nonsense", Payload: []byte(`{}`)})

	if _, err := Deserialize(raw); err == nil {
		t.Errorf("unknown frame type should fail")
	}
}

func TestDeserializeMalformed(t *testing.T) {
	if _, err := Deserialize([]byte("not json")); err == nil {
		t.Errorf("malformed frame should fail")
	}
}

func TestTypeRegistryCoversIncomingFrames(t *testing.T) {
	registry := GetTypeRegistry()
	for _, frameType := range []string{"chat", "read", "ping", "pong"} {
		if _, ok := registry[frameType]; !ok {
			t.Errorf("frame type %q not registered", frameType)
		}
	}
}

func TestFrameEnvelope(t *testing.T) {
	frame := Frame("presence", map[string]interface{}{"online": []uint{1, 2}})

	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != "presence" || len(decoded.Payload) == 0 {
		t.Errorf("unexpected envelope: %s", data)
	}
}
