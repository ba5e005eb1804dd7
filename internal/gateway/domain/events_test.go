package domain

import (
	"encoding/json"
	"testing"
	"time"

	messagedomain "community-platform/backend/internal/message/domain"
	userdomain "community-platform/backend/internal/user/domain"
)

func TestClientEventDecoding(t *testing.T) {
	raw := []byte(`{"type":"message:send","channel_id":"ch-1","content":"hello","ignored":"x"}`)

	var ev ClientEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if ev.Type != ClientMessageSend || ev.ChannelID != "ch-1" || ev.Content != "hello" {
		t.Errorf("decoded event = %+v", ev)
	}
}

func TestNewMessageEvent(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := &messagedomain.Message{
		ID:        "m-1",
		ChannelID: "ch-1",
		SenderID:  "u-1",
		Content:   "hello",
		CreatedAt: created,
		Attachments: []messagedomain.Attachment{
			{ID: "a-1", URL: "https://cdn/x.png", MimeType: "image/png"},
		},
	}

	ev := NewMessageEvent(ServerMessageNew, m, userdomain.Summary{ID: "u-1", Name: "Uno"})
	if ev.Type != ServerMessageNew {
		t.Errorf("type = %q", ev.Type)
	}
	payload, ok := ev.Data.(MessagePayload)
	if !ok {
		t.Fatalf("data is %T", ev.Data)
	}
	if payload.Sender.Name != "Uno" || payload.ID != "m-1" || len(payload.Attachments) != 1 {
		t.Errorf("payload = %+v", payload)
	}

	wire, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}
	var decoded struct {
		Type string `json:"type"`
		Data struct {
			ChannelID string `json:"channel_id"`
			Sender    struct {
				Name string `json:"name"`
			} `json:"sender"`
		} `json:"data"`
	}
	if err := json.Unmarshal(wire, &decoded); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if decoded.Data.ChannelID != "ch-1" || decoded.Data.Sender.Name != "Uno" {
		t.Errorf("wire form = %s", wire)
	}
}

func TestErrorEventShape(t *testing.T) {
	wire, err := json.Marshal(ErrorEvent("forbidden", "not allowed"))
	if err != nil {
		t.Fatalf("encoding: %v", err)
	}
	var decoded struct {
		Type string `json:"type"`
		Data struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	if err := json.Unmarshal(wire, &decoded); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if decoded.Type != ServerError || decoded.Data.Code != "forbidden" {
		t.Errorf("wire form = %s", wire)
	}
}
