package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage(EventJoined, map[string]any{"event_id": 3, "user_handle": "bob"})

	if _, err := uuid.Parse(msg.ID); err != nil {
		t.Errorf("id %q is not a uuid: %v", msg.ID, err)
	}
	if msg.Type != EventJoined {
		t.Errorf("type = %q", msg.Type)
	}
	if msg.Timestamp.IsZero() || msg.Timestamp.Location().String() != "UTC" {
		t.Errorf("timestamp = %v", msg.Timestamp)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	payload, ok := decoded["payload"].(map[string]any)
	if !ok || payload["user_handle"] != "bob" {
		t.Errorf("payload = %v", decoded["payload"])
	}
}

func TestNewMessageIDsDiffer(t *testing.T) {
	if NewMessage(ReplyAdded, nil).ID == NewMessage(ReplyAdded, nil).ID {
		t.Error("message ids should be unique")
	}
}

func TestNewRedisPublisherBadURL(t *testing.T) {
	if _, err := NewRedisPublisher(context.Background(), "not-a-url", "feed"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(context.Background(), EventCreated, nil); err != nil {
		t.Errorf("Nop.Publish = %v", err)
	}
}
