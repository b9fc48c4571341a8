package main

import "testing"

func sampleRecord(owner, text, voice string) TicketRecord {
	return TicketRecord{
		ID:             "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		OwnerID:        owner,
		TextChannelID:  text,
		VoiceChannelID: voice,
		Category:       CategoryCharacterConcept,
	}
}

func TestRegistry_HasAndGet(t *testing.T) {
	r := newTicketRegistry()

	if r.Has("user-1") {
		t.Error("empty registry should not have user-1")
	}
	if _, ok := r.Get("user-1"); ok {
		t.Error("Get on empty registry should report absence")
	}

	rec := sampleRecord("user-1", "text-1", "voice-1")
	r.Put("user-1", rec)

	if !r.Has("user-1") {
		t.Error("registry should have user-1 after Put")
	}
	got, ok := r.Get("user-1")
	if !ok {
		t.Fatal("Get should find user-1")
	}
	if got != rec {
		t.Errorf("Get = %+v, want %+v", got, rec)
	}
}

func TestRegistry_PutOverwritesSilently(t *testing.T) {
	r := newTicketRegistry()
	r.Put("user-1", sampleRecord("user-1", "text-1", "voice-1"))
	r.Put("user-1", sampleRecord("user-1", "text-2", "voice-2"))

	got, _ := r.Get("user-1")
	if got.TextChannelID != "text-2" {
		t.Errorf("Put should overwrite, got text channel %q", got.TextChannelID)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegistry_RemoveByOwner(t *testing.T) {
	r := newTicketRegistry()
	r.Put("user-1", sampleRecord("user-1", "text-1", "voice-1"))

	r.RemoveByOwner("user-1")
	if r.Has("user-1") {
		t.Error("user-1 should be gone after RemoveByOwner")
	}

	// Removing an absent owner is a no-op.
	r.RemoveByOwner("user-2")
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestRegistry_FindByTextChannel(t *testing.T) {
	r := newTicketRegistry()
	r.Put("user-1", sampleRecord("user-1", "text-1", "voice-1"))
	r.Put("user-2", sampleRecord("user-2", "text-2", "voice-2"))

	tests := []struct {
		channelID string
		wantOwner string
		wantOK    bool
	}{
		{"text-1", "user-1", true},
		{"text-2", "user-2", true},
		{"voice-1", "", false}, // voice channels don't resolve
		{"text-9", "", false},
	}
	for _, tt := range tests {
		owner, ok := r.FindByTextChannel(tt.channelID)
		if owner != tt.wantOwner || ok != tt.wantOK {
			t.Errorf("FindByTextChannel(%q) = (%q, %v), want (%q, %v)",
				tt.channelID, owner, ok, tt.wantOwner, tt.wantOK)
		}
	}
}

func TestRegistry_Len(t *testing.T) {
	r := newTicketRegistry()
	for i, owner := range []string{"a", "b", "c"} {
		r.Put(owner, sampleRecord(owner, "text", "voice"))
		if r.Len() != i+1 {
			t.Errorf("Len = %d, want %d", r.Len(), i+1)
		}
	}
}
