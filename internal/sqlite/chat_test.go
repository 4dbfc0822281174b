package sqlite

import (
	"errors"
	"testing"

	"github.com/sietch-labs/sietch/pkg/types"
)

func TestAppendChat_FreshSession(t *testing.T) {
	b := testBackend(t)

	// The very first record of a session hits an empty chat_log; the
	// session timestamp lookup has no rows to aggregate.
	id, err := b.AppendChat(&types.ChatRecord{
		SessionID: "fresh-session",
		Sender:    types.SenderUser,
		Text:      "first message",
	})
	if err != nil {
		t.Fatalf("first AppendChat of a fresh session failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated chat ID")
	}

	// A second session starts fresh too, with records already present
	// under another session.
	if _, err := b.AppendChat(&types.ChatRecord{
		SessionID: "another-session",
		Sender:    types.SenderAssistant,
		Text:      "hello",
	}); err != nil {
		t.Fatalf("first AppendChat of second session failed: %v", err)
	}
}

func TestAppendChat_StrictOrdering(t *testing.T) {
	b := testBackend(t)

	// Rapid appends within the same session must keep strictly
	// increasing timestamps even when the clock does not advance.
	for i := 0; i < 5; i++ {
		sender := types.SenderUser
		if i%2 == 1 {
			sender = types.SenderAssistant
		}
		if _, err := b.AppendChat(&types.ChatRecord{
			SessionID: "s1",
			Sender:    sender,
			Text:      "line",
		}); err != nil {
			t.Fatalf("AppendChat %d failed: %v", i, err)
		}
	}

	recs, err := b.ChatSession("s1")
	if err != nil {
		t.Fatalf("ChatSession failed: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("expected 5 records, got %d", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if !recs[i].CreatedAt.After(recs[i-1].CreatedAt) {
			t.Errorf("record %d not strictly after %d", i, i-1)
		}
	}
}

func TestAppendChat_EntityLink(t *testing.T) {
	b := testBackend(t)

	if _, err := b.UpsertEntity(&types.Entity{Kind: types.KindResource, ID: "spice", Name: "Spice"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	id, err := b.AppendChat(&types.ChatRecord{
		SessionID: "s1",
		Sender:    types.SenderUser,
		Text:      "what is spice?",
		Entity:    &types.Ref{Kind: types.KindResource, ID: "spice"},
	})
	if err != nil {
		t.Fatalf("AppendChat failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated chat ID")
	}

	recs, err := b.ChatSession("s1")
	if err != nil {
		t.Fatalf("ChatSession failed: %v", err)
	}
	if recs[0].Entity == nil || recs[0].Entity.ID != "spice" {
		t.Errorf("entity link not preserved: %+v", recs[0].Entity)
	}
}

func TestAppendChat_Validation(t *testing.T) {
	b := testBackend(t)

	if _, err := b.AppendChat(&types.ChatRecord{SessionID: "s1", Sender: "robot", Text: "x"}); !errors.Is(err, types.ErrInvalidData) {
		t.Errorf("expected ErrInvalidData for unknown sender, got %v", err)
	}
	if _, err := b.AppendChat(&types.ChatRecord{Sender: types.SenderUser, Text: "x"}); !errors.Is(err, types.ErrInvalidData) {
		t.Errorf("expected ErrInvalidData for empty session, got %v", err)
	}
}

func TestSettings_RoundTrip(t *testing.T) {
	b := testBackend(t)

	if err := b.SetSetting("gateway.state", "online"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	if err := b.SetSetting("gateway.state", "offline"); err != nil {
		t.Fatalf("SetSetting overwrite failed: %v", err)
	}

	v, err := b.GetSetting("gateway.state")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if v != "offline" {
		t.Errorf("expected offline, got %q", v)
	}

	if _, err := b.GetSetting("missing"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
